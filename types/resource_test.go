package types

import (
	"testing"
	"time"
)

func TestResourceAgeDays(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		created time.Time
		want    int
	}{
		{"created today", time.Date(2025, 6, 15, 1, 0, 0, 0, time.UTC), 0},
		{"created yesterday late", time.Date(2025, 6, 14, 23, 59, 0, 0, time.UTC), 1},
		{"thirty five days", time.Date(2025, 5, 11, 10, 0, 0, 0, time.UTC), 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resource{ID: "i-01234", CreatedAt: tt.created}
			if got := r.AgeDays(now); got != tt.want {
				t.Errorf("AgeDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNamespaceString(t *testing.T) {
	ns := Namespace{Account: "prod", Region: "us-east-1", ResourceType: "servergroup"}
	if got := ns.String(); got != "prod:us-east-1:servergroup" {
		t.Errorf("String() = %q", got)
	}
	if ns.IsZero() {
		t.Error("populated namespace reported zero")
	}
	if !(Namespace{}).IsZero() {
		t.Error("empty namespace not reported zero")
	}
}

func TestMarkedResourceNotified(t *testing.T) {
	m := MarkedResource{}
	if m.Notified() {
		t.Error("unnotified record reported notified")
	}
	m.NotificationInfo = &NotificationInfo{Recipient: "team@corp.io", NotifiedAt: time.Now()}
	if !m.Notified() {
		t.Error("notified record not reported")
	}
}

func TestMarkedResourceDeletionDue(t *testing.T) {
	now := time.Now()
	m := MarkedResource{ProjectedDeletionAt: now.Add(time.Hour)}
	if m.DeletionDue(now) {
		t.Error("future deletion stamp reported due")
	}
	m.ProjectedDeletionAt = now.Add(-time.Minute)
	if !m.DeletionDue(now) {
		t.Error("past deletion stamp not reported due")
	}
}

func TestResourceStateHistory(t *testing.T) {
	s := ResourceState{ResourceID: "i-01234"}
	if s.CurrentStatus() != nil {
		t.Error("empty history returned a status")
	}

	t0 := time.Now()
	s.Transition(ActionMark, t0)
	s.Transition(ActionOptOut, t0.Add(time.Minute))

	cur := s.CurrentStatus()
	if cur == nil || cur.Action != ActionOptOut {
		t.Errorf("CurrentStatus() = %+v, want OPTOUT", cur)
	}
	if len(s.Statuses) != 2 {
		t.Errorf("history length = %d, want 2", len(s.Statuses))
	}
}

func TestWorkConfigurationValidate(t *testing.T) {
	valid := WorkConfiguration{
		Namespace:               Namespace{Account: "a", Region: "r", ResourceType: "t"},
		RetentionDays:           14,
		MaxAgeDays:              30,
		ItemsProcessedBatchSize: 5,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	missing := valid
	missing.Namespace = Namespace{}
	if err := missing.Validate(); err == nil {
		t.Error("missing namespace accepted")
	}

	badBatch := valid
	badBatch.ItemsProcessedBatchSize = 0
	if err := badBatch.Validate(); err == nil {
		t.Error("zero batch size accepted")
	}
}
