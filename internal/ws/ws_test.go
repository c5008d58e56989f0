package ws

import (
	"io"
	"testing"

	"pickhub/internal/catalog"
	"pickhub/internal/domain"
	"pickhub/internal/picklog"
	"pickhub/internal/repos"
	"pickhub/internal/scan"
	"pickhub/internal/services"
)

// fakeConn records outbound messages; sessions under test are driven through
// Handle, so reads never happen.
type fakeConn struct {
	out    []any
	closed bool
}

func (f *fakeConn) ReadJSON(v any) error  { return io.EOF }
func (f *fakeConn) WriteJSON(v any) error { f.out = append(f.out, v); return nil }
func (f *fakeConn) Close() error          { f.closed = true; return nil }

func (f *fakeConn) last(t *testing.T) any {
	t.Helper()
	if len(f.out) == 0 {
		t.Fatal("no reply sent")
	}
	return f.out[len(f.out)-1]
}

func (f *fakeConn) reset() { f.out = nil }

type env struct {
	deps      Deps
	requester *domain.User
	picker    *domain.User
	admin     *domain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB("file:ws_" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := repos.NewUserRepo(db)
	cat := catalog.NewStoreOf(catalog.New([]domain.Product{
		{UPC: "012345678905", Name: "Oat Digestives", MainCategory: "ambient", Subcategory: "Biscuits"},
		{UPC: "036000291452", Name: "Ginger Snaps", MainCategory: "ambient", Subcategory: "Biscuits"},
	}))
	logs, err := picklog.NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("picklog: %v", err)
	}
	lifecycle := services.NewLifecycleService(repos.NewRequestRepo(db), cat, logs, 10)

	e := &env{deps: Deps{
		Auth:      services.NewAuthService(users),
		Lifecycle: lifecycle,
		Registry:  services.NewRegistry(),
		Matcher:   scan.New(cat),
	}}
	for _, pair := range []struct {
		username string
		dst      **domain.User
	}{{"rita", &e.requester}, {"pablo", &e.picker}, {"admin", &e.admin}} {
		u, err := users.ByUsername(pair.username)
		if err != nil {
			t.Fatalf("seed user %s: %v", pair.username, err)
		}
		*pair.dst = u
	}
	return e
}
