package config

import (
	"os"
	"path/filepath"
)

const configFileName = "enterprise-config.json"

// ConfigPaths returns, in precedence order (lowest first), the config file
// locations this process will merge: the user-level config under the
// operator's home directory, then the project-level config under
// projectDir (if projectDir is non-empty).
func ConfigPaths(projectDir string) (userPath, projectPath string) {
	if home, err := os.UserHomeDir(); err == nil {
		userPath = filepath.Join(home, ".slb-mcp-gateway", configFileName)
	}
	if projectDir != "" {
		projectPath = projectConfigPath(projectDir)
	}
	return userPath, projectPath
}

func projectConfigPath(projectDir string) string {
	return filepath.Join(projectDir, ".slb-mcp-gateway", configFileName)
}
