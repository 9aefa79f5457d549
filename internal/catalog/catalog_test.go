package catalog_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"recwatch/internal/catalog"
)

type fakeFS struct {
	dirs     map[string]bool
	children map[string][]string
}

func (f fakeFS) env(platform, home string, vars map[string]string) catalog.Environment {
	return catalog.Environment{
		Platform: platform,
		Home:     home,
		Vars:     vars,
		Exists:   func(path string) bool { return f.dirs[path] },
		ListDirs: func(path string) []string { return f.children[path] },
	}
}

func paths(candidates []catalog.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Path)
	}
	return out
}

func TestResolveLinuxFiltersMissingAndScansProton(t *testing.T) {
	proton := "/home/p/.steam/steam/steamapps/compatdata/813780/pfx/drive_c/users/steamuser/Games/Age of Empires 2 DE"
	fs := fakeFS{
		dirs: map[string]bool{
			"/home/p/Documents/My Games/Age of Empires 2 DE/SaveGame": true,
			proton:                                 true,
			proton + "/76561198000000001/SaveGame": true,
		},
		children: map[string][]string{
			proton: {"76561198000000001", "76561198000000002"},
		},
	}
	got := paths(catalog.Resolve(fs.env("linux", "/home/p", nil), nil))
	want := []string{
		"/home/p/Documents/My Games/Age of Empires 2 DE/SaveGame",
		proton + "/76561198000000001/SaveGame",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected linux candidates:\n got %v\nwant %v", got, want)
	}
}

func TestResolveDarwinOrder(t *testing.T) {
	home := "/Users/p"
	steam := home + "/Library/Application Support/CrossOver/Bottles/Steam/drive_c/users/crossover/Games/Age of Empires 2 DE"
	fs := fakeFS{
		dirs: map[string]bool{
			home + "/Games/AoE2DE/SaveGame":                                         true,
			home + "/Library/Application Support/CrossOver/Bottles/AoE2DE/SaveGame": true,
			steam:                  true,
			steam + "/42/SaveGame": true,
		},
		children: map[string][]string{steam: {"42"}},
	}
	got := paths(catalog.Resolve(fs.env("darwin", home, nil), nil))
	want := []string{
		home + "/Library/Application Support/CrossOver/Bottles/AoE2DE/SaveGame",
		steam + "/42/SaveGame",
		home + "/Games/AoE2DE/SaveGame",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected darwin candidates:\n got %v\nwant %v", got, want)
	}
}

func TestResolveWindowsUsesBackslashes(t *testing.T) {
	profile := `C:\Users\p`
	fs := fakeFS{
		dirs: map[string]bool{
			`C:\Users\p\Documents\My Games\Age of Empires 2 DE\SaveGame`: true,
			`C:\GOG Games\Age of Empires II DE\SaveGame`:                 true,
			`C:\Users\p\Games\Age of Empires 2 DE`:                       true,
			`C:\Users\p\Games\Age of Empires 2 DE\7656\SaveGame`:         true,
		},
		children: map[string][]string{`C:\Users\p\Games\Age of Empires 2 DE`: {"7656"}},
	}
	got := paths(catalog.Resolve(fs.env("windows", "", map[string]string{"USERPROFILE": profile}), nil))
	want := []string{
		`C:\Users\p\Documents\My Games\Age of Empires 2 DE\SaveGame`,
		`C:\GOG Games\Age of Empires II DE\SaveGame`,
		`C:\Users\p\Games\Age of Empires 2 DE\7656\SaveGame`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected windows candidates:\n got %v\nwant %v", got, want)
	}
}

func TestResolveExplicitKeepsMissingAndDedups(t *testing.T) {
	fs := fakeFS{dirs: map[string]bool{"/srv/replays": true}}
	got := catalog.Resolve(fs.env("linux", "/home/p", nil), []string{"/srv/replays", "/srv/replays/", " ", "/mnt/missing"})
	want := []catalog.Candidate{
		{Path: "/srv/replays", Explicit: true, Exists: true},
		{Path: "/mnt/missing", Explicit: true, Exists: false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected explicit candidates: %+v", got)
	}

	targets := catalog.Targets(got)
	if len(targets) != 1 || targets[0].Path != "/srv/replays" || targets[0].Recursive {
		t.Fatalf("unexpected targets: %+v", targets)
	}
}

func TestResolveUnknownPlatform(t *testing.T) {
	if got := catalog.Resolve(fakeFS{}.env("plan9", "/home/p", nil), nil); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestHostEnvironmentChecksRealDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "123"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := catalog.HostEnvironment()
	if !env.Exists(dir) {
		t.Fatal("expected temp dir to exist")
	}
	if env.Exists(filepath.Join(dir, "file.txt")) {
		t.Fatal("files are not directories")
	}
	if got := env.ListDirs(dir); !reflect.DeepEqual(got, []string{"123"}) {
		t.Fatalf("unexpected subdirectories: %v", got)
	}
}
