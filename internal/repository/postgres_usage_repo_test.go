package repository

import (
	"testing"
)

// PostgresUsageRepoはUsageRepositoryインターフェースを満たすことを検証
func TestPostgresUsageRepo_ImplementsInterface(t *testing.T) {
	var _ UsageRepository = (*PostgresUsageRepo)(nil)
}

// PostgresSubscriptionRepoはSubscriptionRepositoryインターフェースを満たすことを検証
func TestPostgresSubscriptionRepo_ImplementsInterface(t *testing.T) {
	var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
}

// PostgresReportRepoはReportRepositoryインターフェースを満たすことを検証
func TestPostgresReportRepo_ImplementsInterface(t *testing.T) {
	var _ ReportRepository = (*PostgresReportRepo)(nil)
}

// NewPostgresUsageRepoが正しく初期化されることを検証
func TestNewPostgresUsageRepo_Initializes(t *testing.T) {
	repo := NewPostgresUsageRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSubscriptionRepoが正しく初期化されることを検証
func TestNewPostgresSubscriptionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSubscriptionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresReportRepoが正しく初期化されることを検証
func TestNewPostgresReportRepo_Initializes(t *testing.T) {
	repo := NewPostgresReportRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
