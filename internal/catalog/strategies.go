package catalog

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	gameFolder      = "Age of Empires 2 DE"
	gameFolderAlt   = "Age of Empires II DE"
	saveFolder      = "SaveGame"
	storePackage    = "Microsoft.AgeofEmpiresII_8wekyb3d8bbwe"
	protonAppID     = "813780"
	crossOverRoot   = "Library/Application Support/CrossOver/Bottles"
	crossOverBottle = "AoE2DE"
)

// Windows paths are joined with backslashes regardless of the host so the
// strategy stays testable everywhere.
func winJoin(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.ReplaceAll(part, "/", `\`)
		if i > 0 {
			part = strings.Trim(part, `\`)
		} else {
			part = strings.TrimRight(part, `\`)
		}
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, `\`)
}

func cleanFor(platform, p string) string {
	if platform == "windows" {
		return winJoin(p)
	}
	return path.Clean(filepath.ToSlash(p))
}

func windowsDirs(env Environment) []string {
	profile := env.Vars["USERPROFILE"]
	var dirs []string
	if profile != "" {
		dirs = append(dirs,
			winJoin(profile, "Documents", "My Games", gameFolder, saveFolder),
			winJoin(profile, "AppData", "Local", "Packages", storePackage, "LocalCache", saveFolder),
		)
	}
	dirs = append(dirs,
		winJoin(`C:\GOG Games`, gameFolderAlt, saveFolder),
		winJoin(`C:\`+gameFolder, saveFolder),
		winJoin(`D:\Games`, gameFolderAlt, saveFolder),
	)
	if profile != "" {
		dirs = append(dirs, steamIDDirs(env, winJoin(profile, "Games", gameFolder), winJoin)...)
	}
	return dirs
}

func darwinDirs(env Environment) []string {
	home := env.Home
	if home == "" {
		return nil
	}
	dirs := []string{
		path.Join(home, "Documents", "My Games", gameFolder, saveFolder),
		path.Join(home, crossOverRoot, crossOverBottle, saveFolder),
	}
	steamBase := path.Join(home, crossOverRoot, "Steam", "drive_c", "users", "crossover", "Games", gameFolder)
	dirs = append(dirs, steamIDDirs(env, steamBase, path.Join)...)
	dirs = append(dirs,
		path.Join(home, "Parallels", crossOverBottle, saveFolder),
		path.Join(home, "Games", crossOverBottle, saveFolder),
	)
	return dirs
}

func linuxDirs(env Environment) []string {
	home := env.Home
	if home == "" {
		return nil
	}
	dirs := []string{
		path.Join(home, ".wine", "drive_c", "Program Files (x86)", "Microsoft Games", gameFolderAlt, saveFolder),
		path.Join(home, ".wine", "drive_c", "Program Files", gameFolderAlt, saveFolder),
		path.Join(home, "Documents", "My Games", gameFolder, saveFolder),
	}
	protonBase := path.Join(home, ".steam", "steam", "steamapps", "compatdata", protonAppID,
		"pfx", "drive_c", "users", "steamuser", "Games", gameFolder)
	dirs = append(dirs, steamIDDirs(env, protonBase, path.Join)...)
	return dirs
}

// steamIDDirs lists <base>/<id>/SaveGame for every per-account folder under base.
func steamIDDirs(env Environment, base string, join func(...string) string) []string {
	if !env.exists(base) {
		return nil
	}
	var dirs []string
	for _, name := range env.subdirs(base) {
		dirs = append(dirs, join(base, name, saveFolder))
	}
	return dirs
}
