// Package seed populates a development database with a demo social graph.
// Everything goes through the services so seeded data obeys the same rules
// as live traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"kindred/internal/models"
	"kindred/internal/notifications"
	"kindred/internal/repository"
	"kindred/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls the size of the generated graph.
type Options struct {
	Profiles        int
	PostsPerProfile int
}

// DefaultOptions is a small graph that still exercises every feature.
var DefaultOptions = Options{Profiles: 12, PostsPerProfile: 3}

// Report counts what a run created.
type Report struct {
	Profiles      int
	Follows       int
	Friendships   int
	Kinships      int
	Lineages      int
	Posts         int
	Comments      int
	Reactions     int
	Conversations int
	Messages      int
}

var reactionTypes = []models.ReactionType{
	models.ReactionLike, models.ReactionLove, models.ReactionLaugh, models.ReactionAngry, models.ReactionSad,
}

// Seeder builds demo data through the service layer.
type Seeder struct {
	faker     *gofakeit.Faker
	logger    *slog.Logger
	profiles  *service.ProfileService
	graph     *service.GraphService
	friends   *service.FriendService
	feed      *service.FeedService
	reactions *service.ReactionService
	chat      *service.ChatService
	lineages  *service.LineageService
}

// NewSeeder wires services over db. A non-zero seed makes runs
// reproducible. Realtime delivery is disabled.
func NewSeeder(db *gorm.DB, logger *slog.Logger, seed int64) *Seeder {
	store := repository.NewStore(db)
	ns := service.NewNotificationService(store, notifications.NewNotifier(nil, logger), logger)

	return &Seeder{
		faker:     gofakeit.New(seed),
		logger:    logger,
		profiles:  service.NewProfileService(store, logger),
		graph:     service.NewGraphService(store, ns, logger),
		friends:   service.NewFriendService(store, ns, logger),
		feed:      service.NewFeedService(store, ns, logger),
		reactions: service.NewReactionService(store, ns, logger),
		chat:      service.NewChatService(store, ns, logger),
		lineages:  service.NewLineageService(store, ns, logger),
	}
}

// Run creates opts.Profiles profiles and connects them.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Profiles < 2 {
		return nil, fmt.Errorf("need at least 2 profiles, got %d", opts.Profiles)
	}
	report := &Report{}

	people, err := s.createProfiles(ctx, opts.Profiles)
	if err != nil {
		return report, err
	}
	report.Profiles = len(people)

	if err := s.connect(ctx, people, report); err != nil {
		return report, err
	}
	if err := s.createLineages(ctx, people, report); err != nil {
		return report, err
	}
	if err := s.createPosts(ctx, people, opts.PostsPerProfile, report); err != nil {
		return report, err
	}
	if err := s.createConversations(ctx, people, report); err != nil {
		return report, err
	}

	s.logger.InfoContext(ctx, "seed complete",
		slog.Int("profiles", report.Profiles),
		slog.Int("posts", report.Posts),
		slog.Int("friendships", report.Friendships),
		slog.Int("messages", report.Messages),
	)
	return report, nil
}

func (s *Seeder) createProfiles(ctx context.Context, n int) ([]*models.Profile, error) {
	people := make([]*models.Profile, 0, n)
	for i := 0; i < n; i++ {
		first, last := s.faker.FirstName(), s.faker.LastName()
		p, err := s.profiles.Register(ctx, service.RegisterInput{
			UserID:    "seed|" + s.faker.UUID(),
			Username:  username(first, last, i),
			FirstName: first,
			LastName:  last,
			AvatarURL: fmt.Sprintf("https://picsum.photos/seed/%s/200/200", s.faker.UUID()),
			Bio:       s.faker.Sentence(8),
		})
		if err != nil {
			return nil, fmt.Errorf("register profile %d: %w", i, err)
		}
		people = append(people, p)
	}
	return people, nil
}

// username keeps only letters and digits and appends i for uniqueness.
func username(first, last string, i int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(first + last) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 48 {
		name = name[:48]
	}
	return fmt.Sprintf("%s%d", name, i)
}

// connect lays out a ring of follows, friends between neighbours, one
// pending request across the ring and a verified kinship.
func (s *Seeder) connect(ctx context.Context, people []*models.Profile, report *Report) error {
	n := len(people)
	for i, p := range people {
		next := people[(i+1)%n]
		if err := s.graph.Follow(ctx, service.EdgeInput{ActorID: p.ID, TargetID: next.ID}); err != nil {
			return fmt.Errorf("follow: %w", err)
		}
		report.Follows++

		if i%2 == 0 && i+1 < n {
			req, err := s.friends.Send(ctx, service.PairInput{ActorID: p.ID, OtherID: next.ID})
			if err != nil {
				return fmt.Errorf("friend request: %w", err)
			}
			if _, err := s.friends.Accept(ctx, service.RespondInput{RequestID: req.ID, ActorID: next.ID}); err != nil {
				return fmt.Errorf("accept friend request: %w", err)
			}
			report.Friendships++
		}
	}

	if n >= 4 {
		if _, err := s.friends.Send(ctx, service.PairInput{ActorID: people[0].ID, OtherID: people[n/2].ID}); err != nil {
			return fmt.Errorf("pending friend request: %w", err)
		}
	}

	if n >= 3 {
		k, err := s.graph.CreateKinship(ctx, service.KinshipInput{
			ActorID:  people[0].ID,
			TargetID: people[2].ID,
			Relation: models.KinshipSibling,
		})
		if err != nil {
			return fmt.Errorf("create kinship: %w", err)
		}
		if _, err := s.graph.VerifyKinship(ctx, k.ID, people[2].ID); err != nil {
			return fmt.Errorf("verify kinship: %w", err)
		}
		report.Kinships++

		if err := s.graph.Mute(ctx, service.EdgeInput{ActorID: people[n-1].ID, TargetID: people[1].ID}); err != nil {
			return fmt.Errorf("mute: %w", err)
		}
	}
	return nil
}

var lineageTypes = []models.LineageType{
	models.LineageFamily, models.LineageClan, models.LineageSurnameLine, models.LineageTribe,
}

// createLineages founds one lineage per four profiles. The founder invites
// the next three and all but the last of them join.
func (s *Seeder) createLineages(ctx context.Context, people []*models.Profile, report *Report) error {
	n := len(people)
	for i := 0; i+3 < n; i += 4 {
		founder := people[i]
		invited := []string{people[i+1].ID, people[i+2].ID, people[i+3].ID}
		surname := s.faker.LastName()
		lineage, err := s.lineages.Create(ctx, service.CreateLineageInput{
			ActorID:        founder.ID,
			Name:           fmt.Sprintf("%s %s Family", s.faker.Adjective(), surname),
			Type:           lineageTypes[s.faker.IntRange(0, len(lineageTypes)-1)],
			PrimarySurname: surname,
			RootVillage:    s.faker.City(),
			RootRegion:     s.faker.State(),
			Description:    s.faker.Sentence(8),
			InviteIDs:      invited,
		})
		if err != nil {
			return fmt.Errorf("create lineage: %w", err)
		}
		report.Lineages++

		for g, id := range invited[:2] {
			generation := g + 1
			if _, err := s.lineages.Join(ctx, service.JoinLineageInput{
				ActorID:          id,
				LineageID:        lineage.ID,
				Generation:       &generation,
				IsPrimaryLineage: true,
			}); err != nil {
				return fmt.Errorf("join lineage: %w", err)
			}
		}
	}
	return nil
}

func (s *Seeder) createPosts(ctx context.Context, people []*models.Profile, perProfile int, report *Report) error {
	n := len(people)
	for i, author := range people {
		for j := 0; j < perProfile; j++ {
			post, err := s.feed.CreatePost(ctx, service.CreatePostInput{
				AuthorID: author.ID,
				Content:  s.faker.Paragraph(1, 3, 10, " "),
			})
			if err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			report.Posts++

			commenter := people[(i+1+j)%n]
			comment, err := s.feed.CreateComment(ctx, service.CreateCommentInput{
				AuthorID: commenter.ID,
				PostID:   post.ID,
				Content:  s.faker.Sentence(10),
			})
			if err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			report.Comments++

			if _, err := s.feed.CreateComment(ctx, service.CreateCommentInput{
				AuthorID:        author.ID,
				PostID:          post.ID,
				Content:         s.faker.Sentence(6),
				ParentCommentID: comment.ID,
			}); err != nil {
				return fmt.Errorf("create reply: %w", err)
			}
			report.Comments++

			for k := 1; k <= s.faker.IntRange(0, n-1); k++ {
				reactor := people[(i+k)%n]
				if _, err := s.reactions.React(ctx, service.ReactInput{
					ActorID:   reactor.ID,
					Kind:      models.SubjectPost,
					SubjectID: post.ID,
					Type:      reactionTypes[s.faker.IntRange(0, len(reactionTypes)-1)],
				}); err != nil {
					return fmt.Errorf("react: %w", err)
				}
				report.Reactions++
			}
		}
	}
	return nil
}

func (s *Seeder) createConversations(ctx context.Context, people []*models.Profile, report *Report) error {
	direct, err := s.chat.CreateConversation(ctx, service.CreateConversationInput{
		CreatorID:      people[0].ID,
		ParticipantIDs: []string{people[1].ID},
	})
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	report.Conversations++

	for i := 0; i < 5; i++ {
		sender := people[i%2]
		if _, err := s.chat.SendMessage(ctx, service.SendMessageInput{
			ConversationID: direct.ID,
			SenderID:       sender.ID,
			Content:        s.faker.Sentence(7),
		}); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		report.Messages++
	}

	if len(people) < 4 {
		return nil
	}
	group, err := s.chat.CreateConversation(ctx, service.CreateConversationInput{
		CreatorID:      people[0].ID,
		ParticipantIDs: []string{people[1].ID, people[2].ID, people[3].ID},
		IsGroup:        true,
		Title:          s.faker.HipsterWord(),
	})
	if err != nil {
		return fmt.Errorf("create group conversation: %w", err)
	}
	report.Conversations++

	if _, err := s.chat.SendMessage(ctx, service.SendMessageInput{
		ConversationID: group.ID,
		SenderID:       people[2].ID,
		Content:        s.faker.Sentence(5),
	}); err != nil {
		return fmt.Errorf("send group message: %w", err)
	}
	report.Messages++
	return nil
}

// Clear removes every row the seeder can create, children first.
func Clear(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{
			"notifications", "message_reads", "messages", "conversation_participants", "conversations",
			"comment_reactions", "post_reactions", "comments", "posts",
			"lineage_memberships", "lineages",
			"kinships", "friendships", "friend_requests", "mutes", "blocks", "follows", "profiles",
		} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
