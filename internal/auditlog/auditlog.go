package auditlog

import (
    "strconv"
    "time"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/pkg/database"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
)

const DefaultRetentionDays = 30

// Store is the append-only record of every router operation attempt.
type Store struct {
    db  *database.DB
    log *logger.Logger
}

func New(db *database.DB, log *logger.Logger) *Store {
    return &Store{db: db, log: log}
}

// Record inserts one audit entry. Insert failures are logged and swallowed:
// audit logging must never block the operation being audited.
func (s *Store) Record(router, operation, parameters, status, response string) {
    _, err := s.db.Exec(`
        INSERT INTO api_logs (router, operation, parameters, response, status, timestamp)
        VALUES ($1, $2, $3, $4, $5, NOW())
    `, router, operation, parameters, response, status)
    if err != nil {
        s.log.Error("Failed to write API log", "router", router, "operation", operation, "error", err)
    }
}

// PurgeOlderThan deletes entries older than the given number of days.
func (s *Store) PurgeOlderThan(days int) (int64, error) {
    if days <= 0 {
        days = DefaultRetentionDays
    }
    result, err := s.db.Exec(
        "DELETE FROM api_logs WHERE timestamp < NOW() - ($1 || ' days')::interval",
        strconv.Itoa(days),
    )
    if err != nil {
        return 0, err
    }
    deleted, _ := result.RowsAffected()
    return deleted, nil
}

type StatRow struct {
    Status         string    `json:"status"`
    Operation      string    `json:"operation"`
    Router         string    `json:"router"`
    Count          int64     `json:"count"`
    LastOccurrence time.Time `json:"last_occurrence"`
}

// Stats returns grouped counts for the dashboard, optionally filtered.
func (s *Store) Stats(router, status, operation string) ([]StatRow, error) {
    query := `
        SELECT status, operation, router, COUNT(*) as count, MAX(timestamp) as last_occurrence
        FROM api_logs WHERE 1=1`
    args := []interface{}{}
    argCount := 0

    if router != "" {
        argCount++
        query += " AND router = $" + strconv.Itoa(argCount)
        args = append(args, router)
    }
    if status != "" {
        argCount++
        query += " AND status = $" + strconv.Itoa(argCount)
        args = append(args, status)
    }
    if operation != "" {
        argCount++
        query += " AND operation = $" + strconv.Itoa(argCount)
        args = append(args, operation)
    }

    query += " GROUP BY status, operation, router ORDER BY last_occurrence DESC"

    rows, err := s.db.Query(query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var stats []StatRow
    for rows.Next() {
        var row StatRow
        rows.Scan(&row.Status, &row.Operation, &row.Router, &row.Count, &row.LastOccurrence)
        stats = append(stats, row)
    }
    return stats, nil
}

// RecentFailures lists the latest failed calls within the last 24 hours.
func (s *Store) RecentFailures(limit int) ([]models.APILogEntry, error) {
    if limit <= 0 {
        limit = 10
    }
    rows, err := s.db.Query(`
        SELECT id, router, operation, parameters, COALESCE(response, ''), status, timestamp
        FROM api_logs
        WHERE status = 'Failed' AND timestamp > NOW() - INTERVAL '24 hours'
        ORDER BY timestamp DESC LIMIT $1
    `, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var entries []models.APILogEntry
    for rows.Next() {
        var e models.APILogEntry
        rows.Scan(&e.ID, &e.Router, &e.Operation, &e.Parameters, &e.Response, &e.Status, &e.Timestamp)
        entries = append(entries, e)
    }
    return entries, nil
}

// List returns recent entries, newest first, optionally filtered by status.
func (s *Store) List(status string, limit int) ([]models.APILogEntry, error) {
    if limit <= 0 {
        limit = 100
    }
    query := `
        SELECT id, router, operation, parameters, COALESCE(response, ''), status, timestamp
        FROM api_logs WHERE 1=1`
    args := []interface{}{}
    argCount := 0

    if status != "" {
        argCount++
        query += " AND status = $" + strconv.Itoa(argCount)
        args = append(args, status)
    }
    argCount++
    query += " ORDER BY timestamp DESC LIMIT $" + strconv.Itoa(argCount)
    args = append(args, limit)

    rows, err := s.db.Query(query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var entries []models.APILogEntry
    for rows.Next() {
        var e models.APILogEntry
        rows.Scan(&e.ID, &e.Router, &e.Operation, &e.Parameters, &e.Response, &e.Status, &e.Timestamp)
        entries = append(entries, e)
    }
    return entries, nil
}
