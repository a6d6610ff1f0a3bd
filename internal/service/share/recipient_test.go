package share

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"tapestry/internal/domain/models"
	"tapestry/internal/domain/services"
	"tapestry/internal/service/permission"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSplitNames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace only", raw: "  \t ", want: nil},
		{name: "single", raw: "blue", want: []string{"blue"}},
		{name: "comma separated", raw: "blue,orange", want: []string{"blue", "orange"}},
		{name: "space separated", raw: "blue orange", want: []string{"blue", "orange"}},
		{name: "mixed separators", raw: "blue, orange\tanimals\ngerrard", want: []string{"blue", "orange", "animals", "gerrard"}},
		{name: "plus joiner kept within a name", raw: "the+warren, blue", want: []string{"the+warren", "blue"}},
		{name: "trailing comma", raw: "blue,", want: []string{"blue"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitNames(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitNames(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

// world bundles the fakes plus real permission components under a recipient
// resolver.
type world struct {
	users  *fakeUsers
	groups *fakeGroups
	parts  *fakeParticipations
	pages  *fakePages

	resolver  services.PermissionResolver
	policy    services.AccessPolicy
	pester    services.PesterPolicy
	recipient services.RecipientResolver
}

func newWorld() *world {
	w := &world{
		users:  newFakeUsers(),
		groups: newFakeGroups(),
		parts:  newFakeParticipations(),
		pages:  newFakePages(),
	}
	w.resolver = permission.NewResolver(w.parts, w.users, testLogger())
	w.policy = permission.NewPolicy(w.resolver, w.groups)
	w.pester = permission.NewContactPolicy(w.users, w.groups)
	w.recipient = NewRecipientResolver(w.users, w.groups, w.parts, w.resolver, w.policy, w.pester)
	return w
}

func TestResolveClassification(t *testing.T) {
	w := newWorld()
	actor := &models.User{ID: uuid.New(), Login: "blue"}
	w.users.add(actor)

	page := &models.Page{ID: uuid.New()}
	w.pages.add(page)
	w.parts.addUser(page.ID, actor.ID, models.AccessAdmin)

	opts := services.RecipientOptions{Access: models.AccessView}

	t.Run("empty name silently skipped", func(t *testing.T) {
		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "   ", opts, services.ModeShare)
		if err != nil || rec != nil || failure != nil {
			t.Errorf("Resolve = (%v, %v, %v), want all nil", rec, failure, err)
		}
	})

	t.Run("unknown name is not_found", func(t *testing.T) {
		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "nobody", opts, services.ModeShare)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if rec != nil {
			t.Fatal("unknown name should not resolve")
		}
		if failure == nil || failure.Reason != services.ReasonNotFound {
			t.Errorf("failure = %+v, want not_found", failure)
		}
	})

	t.Run("email syntax becomes a magic-link recipient", func(t *testing.T) {
		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "guest@example.org", opts, services.ModeShare)
		if err != nil || failure != nil {
			t.Fatalf("Resolve = (_, %v, %v)", failure, err)
		}
		if rec == nil || !rec.IsEmail() || rec.Email != "guest@example.org" {
			t.Errorf("recipient = %+v, want email recipient", rec)
		}
	})

	t.Run("invalid email syntax is not_found", func(t *testing.T) {
		_, failure, err := w.recipient.Resolve(context.Background(), actor, page, "not@an@address", opts, services.ModeShare)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure == nil || failure.Reason != services.ReasonNotFound {
			t.Errorf("failure = %+v, want not_found", failure)
		}
	})

	t.Run("known user resolves as entity", func(t *testing.T) {
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(target)

		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "orange", opts, services.ModeShare)
		if err != nil || failure != nil {
			t.Fatalf("Resolve = (_, %v, %v)", failure, err)
		}
		if rec == nil || rec.Entity.Type != models.EntityUser || rec.Entity.User.ID != target.ID {
			t.Errorf("recipient = %+v, want user orange", rec)
		}
		if rec.Access != models.AccessView {
			t.Errorf("access = %v, want view", rec.Access)
		}
	})

	t.Run("user lookup wins over group lookup", func(t *testing.T) {
		both := &models.User{ID: uuid.New(), Login: "animals", Pesterable: true}
		w.users.add(both)
		w.groups.add(&models.Group{ID: uuid.New(), Name: "animals", PublicView: true})

		rec, _, err := w.recipient.Resolve(context.Background(), actor, page, "animals", opts, services.ModeShare)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if rec == nil || rec.Entity.Type != models.EntityUser {
			t.Errorf("recipient = %+v, want the user, not the group", rec)
		}
	})
}

func TestResolvePesterRules(t *testing.T) {
	opts := services.RecipientOptions{Access: models.AccessView}

	t.Run("unreachable recipient is pester_denied", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		hermit := &models.User{ID: uuid.New(), Login: "crow"}
		w.users.add(actor)
		w.users.add(hermit)

		page := &models.Page{ID: uuid.New()}
		w.pages.add(page)

		_, failure, err := w.recipient.Resolve(context.Background(), actor, page, "crow", opts, services.ModeShare)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure == nil || failure.Reason != services.ReasonPesterDenied {
			t.Errorf("failure = %+v, want pester_denied", failure)
		}
	})

	t.Run("carve-out: existing access on a private page forgives pester", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		hermit := &models.User{ID: uuid.New(), Login: "crow"}
		w.users.add(actor)
		w.users.add(hermit)

		page := &models.Page{ID: uuid.New()}
		w.pages.add(page)
		w.parts.addUser(page.ID, hermit.ID, models.AccessView)

		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "crow", opts, services.ModeNotify)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure != nil {
			t.Fatalf("failure = %+v, want carve-out to apply", failure)
		}
		if rec == nil || rec.Entity.User.ID != hermit.ID {
			t.Errorf("recipient = %+v, want crow", rec)
		}
	})

	t.Run("carve-out does not apply on public pages", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		hermit := &models.User{ID: uuid.New(), Login: "crow"}
		w.users.add(actor)
		w.users.add(hermit)

		page := &models.Page{ID: uuid.New(), Public: true}
		w.pages.add(page)
		w.parts.addUser(page.ID, hermit.ID, models.AccessView)

		_, failure, err := w.recipient.Resolve(context.Background(), actor, page, "crow", opts, services.ModeNotify)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure == nil || failure.Reason != services.ReasonPesterDenied {
			t.Errorf("failure = %+v, want pester_denied", failure)
		}
	})
}

func TestResolveModeRules(t *testing.T) {
	opts := services.RecipientOptions{Access: models.AccessEdit}

	t.Run("re-share at the same level is already_shared", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(actor)
		w.users.add(target)

		page := &models.Page{ID: uuid.New()}
		w.pages.add(page)
		w.parts.addUser(page.ID, target.ID, models.AccessEdit)

		_, failure, err := w.recipient.Resolve(context.Background(), actor, page, "orange", opts, services.ModeShare)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure == nil || failure.Reason != services.ReasonAlreadyShared {
			t.Errorf("failure = %+v, want already_shared", failure)
		}
	})

	t.Run("re-share at a different level is an update", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(actor)
		w.users.add(target)

		page := &models.Page{ID: uuid.New()}
		w.pages.add(page)
		w.parts.addUser(page.ID, target.ID, models.AccessView)

		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "orange", opts, services.ModeShare)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure != nil {
			t.Fatalf("failure = %+v, a level change must flow through", failure)
		}
		if rec == nil || rec.Access != models.AccessEdit {
			t.Errorf("recipient = %+v, want edit recipient", rec)
		}
	})

	t.Run("share over a watcher row is allowed", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(actor)
		w.users.add(target)

		page := &models.Page{ID: uuid.New()}
		w.pages.add(page)
		w.parts.addUser(page.ID, target.ID, models.AccessNone)

		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "orange", opts, services.ModeShare)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure != nil {
			t.Fatalf("failure = %+v, watcher rows must not block sharing", failure)
		}
		if rec == nil {
			t.Fatal("expected a recipient")
		}
	})

	t.Run("notify without standing or visibility is notify_no_access", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(actor)
		w.users.add(target)

		page := &models.Page{ID: uuid.New()}
		w.pages.add(page)
		w.parts.addUser(page.ID, actor.ID, models.AccessEdit)

		_, failure, err := w.recipient.Resolve(context.Background(), actor, page, "orange", opts, services.ModeNotify)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure == nil || failure.Reason != services.ReasonNotifyNoAccess {
			t.Errorf("failure = %+v, want notify_no_access", failure)
		}
	})

	t.Run("notify on a public page needs no participation", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(actor)
		w.users.add(target)

		page := &models.Page{ID: uuid.New(), Public: true}
		w.pages.add(page)

		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "orange", opts, services.ModeNotify)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure != nil {
			t.Fatalf("failure = %+v, public page should satisfy notify", failure)
		}
		if rec == nil {
			t.Fatal("expected a recipient")
		}
	})

	t.Run("page admin may notify anyone reachable", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(actor)
		w.users.add(target)

		page := &models.Page{ID: uuid.New()}
		w.pages.add(page)
		w.parts.addUser(page.ID, actor.ID, models.AccessAdmin)

		rec, failure, err := w.recipient.Resolve(context.Background(), actor, page, "orange", opts, services.ModeNotify)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if failure != nil {
			t.Fatalf("failure = %+v, admin should override", failure)
		}
		if rec == nil {
			t.Fatal("expected a recipient")
		}
	})

	t.Run("nil page skips page-scoped checks", func(t *testing.T) {
		w := newWorld()
		actor := &models.User{ID: uuid.New(), Login: "blue"}
		target := &models.User{ID: uuid.New(), Login: "orange", Pesterable: true}
		w.users.add(actor)
		w.users.add(target)

		rec, failure, err := w.recipient.Resolve(context.Background(), actor, nil, "orange", opts, services.ModeShare)
		if err != nil || failure != nil {
			t.Fatalf("Resolve = (_, %v, %v)", failure, err)
		}
		if rec == nil {
			t.Fatal("expected a recipient for a page still being composed")
		}
	})
}
