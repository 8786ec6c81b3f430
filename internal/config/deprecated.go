package config

import (
	"encoding/json"
	"os"
)

// DeprecatedField describes a deprecated configuration field.
type DeprecatedField struct {
	JSONKey     string `json:"json_key"`
	Message     string `json:"message"`
	Replacement string `json:"replacement,omitempty"`
}

// deprecatedFields lists config keys carried over from the old Electron-era
// settings file. The loader ignores them, so a stale key silently loses the
// user's intent unless we warn about it.
var deprecatedFields = []DeprecatedField{
	{
		JSONKey:     "serveOnLocalNetwork",
		Message:     "serveOnLocalNetwork is no longer read",
		Replacement: "Rename to serve_on_local_network",
	},
	{
		JSONKey:     "autoUpdate",
		Message:     "autoUpdate is no longer read",
		Replacement: "Rename to auto_update",
	},
	{
		JSONKey:     "startOnLaunch",
		Message:     "startOnLaunch is no longer read",
		Replacement: "Rename to start_on_launch",
	},
}

// CheckDeprecatedFields reads the raw JSON config file and returns which
// deprecated keys are present. It does not validate or parse the full config.
func CheckDeprecatedFields(configPath string) []DeprecatedField {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var found []DeprecatedField
	for _, df := range deprecatedFields {
		if _, exists := raw[df.JSONKey]; exists {
			found = append(found, df)
		}
	}
	return found
}
