package internal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"/", "", false},
		{"", "", false},
		{"/chat", "", false},
		{"/chat/", "", false},
		{"/chat/abc123", "abc123", false},
		{"/chat/abc123/", "abc123", false},
		{"/chat/a%20b", "a b", false},
		{"/settings", "", true},
		{"/chat/a/b", "", true},
		{"/chat/%zz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if tt.wantErr && !IsValidation(err) {
				t.Errorf("ParsePath(%q) error = %v, want ValidationError", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("ParsePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathRoundTrip(t *testing.T) {
	for _, id := range []string{"S", "3ZtQkqXvT9", "with space"} {
		got, err := ParsePath(PathFor(id))
		if err != nil || got != id {
			t.Errorf("ParsePath(PathFor(%q)) = %q, %v", id, got, err)
		}
	}
	if PathFor("") != "/" {
		t.Errorf("PathFor(\"\") = %q, want /", PathFor(""))
	}
}

func TestRouter_FollowsStore(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	var paths []string
	r.OnChange(func(p string) { paths = append(paths, p) })

	a := s.Create("A")
	if r.Path() != "/" {
		t.Errorf("Path() after Create = %q, want /", r.Path())
	}
	_ = s.Select(a)
	if r.Path() != PathFor(a) {
		t.Errorf("Path() after Select = %q, want %q", r.Path(), PathFor(a))
	}
	_ = s.Rename(a, "renamed")
	s.Append(a, Message{Role: RoleUser, Content: "hi"})
	s.Delete(a)
	if r.Path() != "/" {
		t.Errorf("Path() after deleting active = %q, want /", r.Path())
	}

	if diff := cmp.Diff([]string{PathFor(a), "/"}, paths); diff != "" {
		t.Errorf("path changes mismatch (-want +got):\n%s", diff)
	}
}

func TestRouter_NavigateKnown(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	s.Create("A")
	b := s.Create("B")

	got, err := r.Navigate("/chat/" + b)
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got != PathFor(b) || s.Active() != b || r.Path() != got {
		t.Errorf("Navigate() = %q, active %q, path %q", got, s.Active(), r.Path())
	}
}

func TestRouter_NavigateUnknownRedirects(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	a := s.Create("A")
	b := s.Create("B")
	_ = s.Select(a)

	got, err := r.Navigate("/chat/does-not-exist")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got != PathFor(b) || s.Active() != b {
		t.Errorf("Navigate() = %q, active %q, want redirect to %q", got, s.Active(), b)
	}
	if s.Len() != 2 {
		t.Errorf("redirect created a session, Len() = %d", s.Len())
	}
}

func TestRouter_NavigateUnknownOnEmptyStore(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	got, err := r.Navigate("/chat/ghost")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if got != PathFor(s.Active()) || r.Path() != got {
		t.Errorf("Navigate() = %q, Path() = %q, active %q", got, r.Path(), s.Active())
	}
}

func TestRouter_NavigateRootDeselects(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	a := s.Create("A")
	_ = s.Select(a)

	got, err := r.Navigate("/")
	if err != nil || got != "/" {
		t.Fatalf("Navigate(/) = %q, %v", got, err)
	}
	if s.Active() != "" || r.Path() != "/" {
		t.Errorf("active %q, path %q after Navigate(/)", s.Active(), r.Path())
	}
}

func TestRouter_NavigateMalformed(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	a := s.Create("A")
	_ = s.Select(a)

	if _, err := r.Navigate("/nowhere"); !IsValidation(err) {
		t.Errorf("Navigate() error = %v, want ValidationError", err)
	}
	if s.Active() != a {
		t.Error("malformed path changed the active session")
	}
}

func TestRouter_NoEventWithoutPathChange(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	a := s.Create("A")
	_, _ = r.Navigate(PathFor(a))

	calls := 0
	r.OnChange(func(string) { calls++ })

	_, _ = r.Navigate(PathFor(a))
	_ = s.Select(a)
	if calls != 0 {
		t.Errorf("OnChange fired %d times without a path change", calls)
	}
}

func TestRouter_StartsFromActiveSession(t *testing.T) {
	s := NewTestStore()
	a := s.Create("A")
	_ = s.Select(a)

	r := NewRouter(s)
	defer r.Close()
	if r.Path() != PathFor(a) {
		t.Errorf("Path() = %q, want %q", r.Path(), PathFor(a))
	}
}

func TestRouter_StaleEventIgnored(t *testing.T) {
	s := NewTestStore()
	r := NewRouter(s)
	defer r.Close()

	a := s.Create("A")
	_ = s.Select(a)

	r.onEvent(Event{Kind: EventDeselected, Active: "", Version: 1})
	if r.Path() != PathFor(a) {
		t.Errorf("stale event moved the path to %q", r.Path())
	}
}
