// Package testutil opens throwaway sqlite databases carrying the service schema.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Uint64

const schema = `
CREATE TABLE assignment_requests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  client_id INTEGER NOT NULL,
  consultant_id INTEGER,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  proposed_budget NUMERIC,
  proposed_price NUMERIC,
  negotiated_price NUMERIC,
  final_price NUMERIC,
  status TEXT NOT NULL DEFAULT 'pending_review',
  deadline DATETIME,
  client_review_status TEXT NOT NULL DEFAULT 'none',
  client_review_notes TEXT,
  client_reviewed_at DATETIME,
  revision_count INTEGER NOT NULL DEFAULT 0,
  payment_method TEXT,
  payment_receipt TEXT,
  payment_receipt_filename TEXT,
  payment_uploaded_at DATETIME,
  payment_verified_at DATETIME,
  work_file TEXT,
  work_file_name TEXT,
  work_notes TEXT,
  work_submitted_at DATETIME,
  final_submission_file TEXT,
  final_submission_filename TEXT,
  final_notes TEXT,
  final_submitted_at DATETIME,
  cancellation_reason TEXT,
  deadline_reminder_sent INTEGER NOT NULL DEFAULT 0,
  overdue_notification_sent INTEGER NOT NULL DEFAULT 0,
  price_proposed_at DATETIME,
  accepted_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE TABLE assignment_messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  assignment_id INTEGER NOT NULL REFERENCES assignment_requests(id),
  sender_id INTEGER,
  message TEXT NOT NULL,
  attachment TEXT,
  attachment_filename TEXT,
  message_type TEXT NOT NULL DEFAULT 'general',
  created_at DATETIME NOT NULL
);
CREATE TABLE consultant_earnings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  assignment_id INTEGER UNIQUE,
  consultant_id INTEGER NOT NULL,
  amount NUMERIC NOT NULL,
  consultant_share NUMERIC NOT NULL,
  website_fee NUMERIC NOT NULL,
  team_fee NUMERIC NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_date DATETIME,
  notes TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE TABLE payment_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  payment_type TEXT NOT NULL,
  recipient_id INTEGER,
  amount NUMERIC NOT NULL,
  period_start DATETIME,
  period_end DATETIME,
  reference TEXT,
  notes TEXT,
  recorded_by INTEGER NOT NULL,
  created_at DATETIME NOT NULL
);
CREATE TABLE ratings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  assignment_id INTEGER NOT NULL,
  client_id INTEGER NOT NULL,
  consultant_id INTEGER NOT NULL,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  review TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  CONSTRAINT ratings_assignment_client_key UNIQUE (assignment_id, client_id)
);
CREATE TABLE consultant_profiles (
  consultant_id INTEGER PRIMARY KEY,
  average_rating REAL NOT NULL DEFAULT 0,
  total_ratings INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME NOT NULL
);
CREATE TABLE notifications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  assignment_id INTEGER,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME NOT NULL
);
`

// OpenDB returns an isolated in-memory database with every table created.
// A single pooled connection keeps the in-memory database alive for the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:medconsult_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
