package config

import (
	"fmt"
	"os"
)

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

const Template = `# stmmctl configuration

# "optee" talks to the StandaloneMM trusted application through the kernel
# TEE driver. "loopback" answers from an in-process peer.
transport = "optee"
device = "/dev/tee0"
ta_uuid = "ed32d533-99e6-4209-9cc0-2d72cdd998a7"

# Width of UINTN fields in the communication buffer (4 or 8). Defaults to the
# pointer width of this host.
# word_size = 8

# "strict" fails negotiation on a non-zero ret_status, "lenient" logs it.
status_policy = "strict"
max_payload_size = 16777216

connect_attempts = 1
connect_backoff = "250ms"

[loopback]
payload_size = 4098
# An EFI status name ("EFI_ACCESS_DENIED"), a hex string or an integer.
status = "EFI_SUCCESS"

[log]
level = "info"
file = ""
no_color = false

[metrics]
textfile = ""
`
