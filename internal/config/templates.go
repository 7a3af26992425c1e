package config

import (
	"fmt"
	"os"
)

func Template() string { return farectlTemplate }

// WriteTemplate writes the default farectl.toml to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(farectlTemplate), 0o600)
}

const farectlTemplate = `log_level = "info"

[server]
addr = ":9300"
cors_origins = ["http://localhost:3000"]

[store]
dir = "dumps"

# remote reader used by "farectl dump --remote"
[reader]
remote = ""
name = "farectl"
dial_timeout = "5s"
rpc_timeout = "2s"
connect_attempts = 3
token = ""

[reader.tls]
enabled = false
mutual = false
cert_file = ""
key_file = ""
ca_file = ""
server_name = ""

# a non-empty token makes the relay reject anonymous readers;
# idle_timeout frees the reader from a client that stopped calling ("0s" never)
[relay]
addr = ":9310"
idle_timeout = "30s"
token = ""

[relay.tls]
enabled = false
mutual = false
cert_file = ""
key_file = ""
ca_file = ""

# empty path uses the built-in bus route table
[routes]
path = ""
`
