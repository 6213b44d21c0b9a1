package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/EquidnaMX/stag-herd/internal/audit/domain"
	"github.com/EquidnaMX/stag-herd/internal/audit/repository"
	"github.com/EquidnaMX/stag-herd/internal/auditcontext"
	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/testutil"
)

func newTestService(t *testing.T, enabled bool) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return NewService(Params{
		DB:    testutil.OpenDB(t, &domain.AuditLog{}),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Cfg:   config.Config{Audit: config.AuditConfig{Enabled: enabled}},
		Clock: clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	})
}

func TestRecordAttachesRequestDetails(t *testing.T) {
	svc := newTestService(t, true)

	ctx := auditcontext.WithIPAddress(context.Background(), "203.0.113.7")
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	ctx = auditcontext.WithActor(ctx, string(domain.ActorTypeProvider), "stripe")

	svc.Record(ctx, domain.Entry{
		Action:     domain.ActionWebhookVerificationFailed,
		TargetType: "webhook",
		TargetID:   "stripe",
		Metadata:   map[string]any{"reason": "Signature mismatch", "": "dropped"},
	})

	entries, err := svc.List(context.Background(), domain.ListFilter{IPAddress: "203.0.113.7"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.ActorType != "provider" || entry.ActorID == nil || *entry.ActorID != "stripe" {
		t.Fatalf("unexpected actor %q %v", entry.ActorType, entry.ActorID)
	}
	if entry.RequestID == nil || *entry.RequestID != "req-1" {
		t.Fatalf("expected request id, got %v", entry.RequestID)
	}
	if entry.Metadata["reason"] != "Signature mismatch" || len(entry.Metadata) != 1 {
		t.Fatalf("unexpected metadata %v", entry.Metadata)
	}

	count, err := svc.Count(context.Background(), domain.ListFilter{Action: domain.ActionWebhookVerificationFailed})
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d err=%v", count, err)
	}
}

func TestRecordDisabled(t *testing.T) {
	svc := newTestService(t, false)
	svc.Record(context.Background(), domain.Entry{Action: domain.ActionPaymentRequested, TargetType: "payment"})

	count, err := svc.Count(context.Background(), domain.ListFilter{})
	if err != nil || count != 0 {
		t.Fatalf("expected no entries, got %d err=%v", count, err)
	}
}
