package platform

import "path/filepath"

// getLinuxPaths follows the XDG base directory layout
func getLinuxPaths(homeDir string, getenv func(string) string) *Paths {
	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(homeDir, ".config")
	}
	stateHome := getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(homeDir, ".local", "state")
	}

	stateDir := filepath.Join(stateHome, AppName)
	return &Paths{
		ConfigFile: filepath.Join(configHome, AppName, "config.yaml"),
		StateDir:   stateDir,
		LogFile:    filepath.Join(stateDir, AppName+".log"),
	}
}
