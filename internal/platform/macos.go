package platform

import "path/filepath"

// getMacOSPaths uses Application Support for state and Library/Logs for the log
func getMacOSPaths(homeDir string) *Paths {
	return &Paths{
		ConfigFile: filepath.Join(homeDir, ".config", AppName, "config.yaml"),
		StateDir:   filepath.Join(homeDir, "Library", "Application Support", AppName),
		LogFile:    filepath.Join(homeDir, "Library", "Logs", AppName, AppName+".log"),
	}
}
