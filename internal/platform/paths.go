package platform

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "taskboard"

// Paths are the per-user locations one app name reads and writes.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	// LogDir holds dev log files when logging.dev_file.dir is blank.
	LogDir string
}

// Options selects which app's paths to resolve.
type Options struct {
	AppName string
	DevMode bool
}

// Env is the process state path resolution reads.
type Env struct {
	GOOS      string
	Getenv    func(string) string
	ConfigDir string
	HomeDir   string
}

// SystemEnv reads Env from the running process. Lookup failures leave the
// field blank; Resolve reports them if the field is needed.
func SystemEnv() Env {
	env := Env{GOOS: runtime.GOOS, Getenv: os.Getenv}
	env.ConfigDir, _ = os.UserConfigDir()
	env.HomeDir, _ = os.UserHomeDir()
	return env
}

// Resolve returns the paths for opts under env.
func Resolve(env Env, opts Options) (Paths, error) {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}

	configBase, dataBase, err := env.bases()
	if err != nil {
		return Paths{}, err
	}
	dataDir := filepath.Join(dataBase, name)
	return Paths{
		ConfigPath: filepath.Join(configBase, name, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, name+".db"),
		LogDir:     filepath.Join(dataDir, "log"),
	}, nil
}

// bases picks the config and data roots. Linux follows XDG, Windows splits
// roaming config from local data, everything else keeps both in ConfigDir.
func (e Env) bases() (string, string, error) {
	getenv := e.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	lookup := func(key string) string { return strings.TrimSpace(getenv(key)) }

	configBase, dataBase := e.ConfigDir, e.ConfigDir
	switch e.GOOS {
	case "linux":
		dataBase = ""
		if e.HomeDir != "" {
			dataBase = filepath.Join(e.HomeDir, ".local", "share")
		}
		if v := lookup("XDG_CONFIG_HOME"); v != "" {
			configBase = v
		}
		if v := lookup("XDG_DATA_HOME"); v != "" {
			dataBase = v
		}
	case "windows":
		if v := lookup("APPDATA"); v != "" {
			configBase = v
		}
		if v := lookup("LOCALAPPDATA"); v != "" {
			dataBase = v
		}
	}
	if configBase == "" {
		return "", "", errors.New("resolve config dir: no user config dir")
	}
	if dataBase == "" {
		return "", "", errors.New("resolve data dir: no user data dir")
	}
	return configBase, dataBase, nil
}
