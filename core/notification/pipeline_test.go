package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/stream"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/dummy"
	"github.com/trezcool/darasa/tests"
)

func newPipeline(t *testing.T, repo *dummydb.NotificationRepository) (*notification.Pipeline, *notification.Service) {
	t.Helper()
	svc := newService(t, repo, core.NotificationConfig{})
	p := notification.NewPipeline(
		notification.NewEnricher(seededLookup()),
		notification.NewDeduplicator(svc),
		svc,
		testutil.Logger{},
	)
	return p, svc
}

func Test_Pipeline_endToEnd(t *testing.T) {
	p, svc := newPipeline(t, dummydb.NewNotificationRepository())

	p.Handle(context.Background(), testutil.ScoreEvent(t, stream.OpInsert, "s1", "st1", "l1", 8, when))

	got := svc.List()
	if len(got) != 1 {
		t.Fatalf("List() = %d records; want 1", len(got))
	}
	if got[0].Title != "New Score for Alice" {
		t.Errorf("Title = %q", got[0].Title)
	}
	if got[0].Meta["source_row_id"] != "s1" {
		t.Errorf("Meta = %+v", got[0].Meta)
	}
}

// Two subscriptions with overlapping scopes deliver the same event twice;
// exactly one record must come out the other end.
func Test_Pipeline_overlappingDeliveries(t *testing.T) {
	p, svc := newPipeline(t, dummydb.NewNotificationRepository())
	ev := testutil.ScoreEvent(t, stream.OpInsert, "s1", "st1", "l1", 8, when)

	ctx := context.Background()
	p.Handle(ctx, ev)
	p.Handle(ctx, ev)

	if got := svc.List(); len(got) != 1 {
		t.Errorf("List() = %d records from redundant deliveries; want 1", len(got))
	}
}

func Test_Pipeline_enrichmentFailureDropsEvent(t *testing.T) {
	p, svc := newPipeline(t, dummydb.NewNotificationRepository())

	// unknown student: the related row is gone, drop silently
	p.Handle(context.Background(), testutil.ScoreEvent(t, stream.OpInsert, "s1", "ghost", "l1", 8, when))

	if got := svc.List(); len(got) != 0 {
		t.Errorf("List() = %d records; want 0 after enrichment failure", len(got))
	}
}

func Test_Pipeline_cancelledSessionDiscardsResult(t *testing.T) {
	p, svc := newPipeline(t, dummydb.NewNotificationRepository())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Handle(ctx, testutil.ScoreEvent(t, stream.OpInsert, "s1", "st1", "l1", 8, when))

	if got := svc.List(); len(got) != 0 {
		t.Errorf("List() = %d records; want 0 after logout", len(got))
	}
}

// Full path: manager subscriptions feeding the pipeline through the dummy
// change stream, overlap and filtering included.
func Test_Pipeline_withManager(t *testing.T) {
	repo := dummydb.NewNotificationRepository()
	p, svc := newPipeline(t, repo)

	cs := dummydb.NewChangeStream()
	conf := core.NotificationConfig{SubscribeRetryMax: 2, SubscribeRetryBackoff: time.Millisecond}
	m := stream.NewManager(cs, p, testutil.Logger{}, conf)
	defer m.Close()

	m.Reconcile(stream.ScopeOf(user.User{ID: "par1", Roles: []string{user.RoleParent}, Children: []string{"st1"}}))
	testutil.WaitFor(t, "subscriptions live", func() bool { return cs.LiveCount() == 3 })

	cs.Emit(testutil.ScoreEvent(t, stream.OpInsert, "s1", "st1", "l1", 8, when))
	cs.Emit(testutil.ScoreEvent(t, stream.OpInsert, "s2", "st-other", "l1", 5, when)) // filtered out

	testutil.WaitFor(t, "record stored", func() bool { return len(svc.List()) == 1 })
	rec := svc.List()[0]
	if rec.Category != notification.CategoryGrade {
		t.Errorf("Category = %q", rec.Category)
	}
	if rec.Meta["student_id"] != "st1" {
		t.Errorf("Meta = %+v", rec.Meta)
	}
}
