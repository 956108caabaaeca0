package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUsersPath(t *testing.T) {
	got, err := UsersPath("/etc/parrot/parrot.yaml", "users.json")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/etc/parrot/users.json" {
		t.Errorf("UsersPath() = %q", got)
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandTilde("~/x/y")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "x/y"); got != want {
		t.Errorf("ExpandTilde() = %q, want %q", got, want)
	}
	if got, _ := ExpandTilde("/abs"); got != "/abs" {
		t.Errorf("ExpandTilde(/abs) = %q", got)
	}
}

func TestConfigPathPrefersWorkingDir(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.WriteFile(filepath.Join(dir, "parrot.toml"), []byte(""), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "parrot.toml" || !filepath.IsAbs(got) {
		t.Errorf("ConfigPath() = %q", got)
	}
}

func TestEnsureParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.json")
	if err := EnsureParentDir(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent not created: %v", err)
	}
}
