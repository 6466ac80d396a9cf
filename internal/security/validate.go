package security

import (
	"errors"
	"strings"
)

var (
	ErrMultipleQueries = errors.New("multi-statement queries are not allowed")
	ErrNotSelect       = errors.New("only SELECT queries are allowed")
	ErrInvalidEmail    = errors.New("invalid email address format")
)

// ValidateEmail rejects malformed addresses and header-injection attempts
// (embedded CR/LF).
func ValidateEmail(email string) error {
	if strings.ContainsAny(email, "\r\n") {
		return ErrInvalidEmail
	}
	atIdx := strings.Index(email, "@")
	dotIdx := strings.LastIndex(email, ".")
	if atIdx < 1 || dotIdx < atIdx+2 || dotIdx == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateQuery enforces read-only access for export queries:
//  1. Must be a SELECT statement.
//  2. No statement stacking (semicolons).
//  3. No DML/DDL keywords or common leakage vectors.
//  4. No system schema access.
//
// Keywords are matched on word boundaries so column names like "deleted_at"
// pass.
func ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	qUpper := strings.ToUpper(q)

	if !strings.HasPrefix(qUpper, "SELECT") {
		return ErrNotSelect
	}
	if strings.Contains(q, ";") {
		return ErrMultipleQueries
	}

	forbidden := []string{
		"DELETE", "DROP", "INSERT", "UPDATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE",
		"CREATE", "REPLACE", "CALL", "DO", "HANDLER", "LOAD", "UNION",
		"USER(", "VERSION(", "DATABASE(", "LOAD_FILE(", "@@VERSION", "@@HOSTNAME",
	}
	for _, word := range forbidden {
		if containsWord(qUpper, word) {
			return errors.New("forbidden keyword detected: " + word)
		}
	}

	systemSchemas := []string{
		"INFORMATION_SCHEMA", "MYSQL", "PERFORMANCE_SCHEMA", "SYS", "PG_CATALOG",
	}
	for _, schema := range systemSchemas {
		if containsWord(qUpper, schema) {
			return errors.New("access to system schema blocked: " + schema)
		}
	}

	return nil
}

// containsWord reports whether word occurs in s delimited by SQL word
// boundaries. s must already be uppercase.
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i == -1 {
			return false
		}
		start := idx + i
		end := start + len(word)

		startOK := start == 0 || isBoundary(s[start-1])
		endOK := end == len(s) || isBoundary(s[end])
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' ||
		b == '(' || b == ')' || b == ',' || b == '=' ||
		b == '<' || b == '>' || b == '`' || b == '.' ||
		b == '"' || b == '[' || b == ']'
}
