package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// keyset orders q by (created_at, id) on table and, when cursor is set,
// keeps only rows strictly after the cursor row in that order. An unknown
// cursor matches nothing. It fetches limit+1 rows so the caller can detect a
// following page.
func keyset(q *gorm.DB, table, cursor string, desc bool, limit int) *gorm.DB {
	op, dir := ">", "ASC"
	if desc {
		op, dir = "<", "DESC"
	}

	if cursor != "" {
		anchor := fmt.Sprintf("(SELECT created_at FROM %s WHERE id = ?)", table)
		q = q.Where(
			fmt.Sprintf("(%[1]s.created_at %[2]s %[3]s OR (%[1]s.created_at = %[3]s AND %[1]s.id %[2]s ?))", table, op, anchor),
			cursor, cursor, cursor,
		)
	}

	return q.
		Order(fmt.Sprintf("%s.created_at %s", table, dir)).
		Order(fmt.Sprintf("%s.id %s", table, dir)).
		Limit(limit + 1)
}

// excluding adds "column NOT IN ids" when ids is non-empty.
func excluding(q *gorm.DB, column string, ids []string) *gorm.DB {
	if len(ids) == 0 {
		return q
	}
	return q.Where(column+" NOT IN ?", ids)
}
