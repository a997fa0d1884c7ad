package secretstore

import "strings"

// parseProjectPath validates projects/{project}.
func parseProjectPath(path string) (project string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] != "projects" || parts[1] == "" {
		return "", &PathError{Path: path, Want: "projects/{project}"}
	}
	return parts[1], nil
}

// parseSecretPath validates projects/{project}/secrets/{secret_id}.
func parseSecretPath(path string) (project, secretID string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "secrets" ||
		parts[1] == "" || parts[3] == "" {
		return "", "", &PathError{Path: path, Want: "projects/{project}/secrets/{secret_id}"}
	}
	return parts[1], parts[3], nil
}

// parseVersionPath validates
// projects/{project}/secrets/{secret_id}/versions/{version}.
func parseVersionPath(path string) (project, secretID, versionID string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 6 || parts[0] != "projects" || parts[2] != "secrets" ||
		parts[4] != "versions" || parts[1] == "" || parts[3] == "" || parts[5] == "" {
		return "", "", "", &PathError{
			Path: path,
			Want: "projects/{project}/secrets/{secret_id}/versions/{version}",
		}
	}
	return parts[1], parts[3], parts[5], nil
}
