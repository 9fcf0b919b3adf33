package fixgateway

import (
	"fmt"
	"strings"

	"github.com/joripage/tradehook/pkg/relay"
	"github.com/quickfixgo/quickfix"
)

// targetCompID is the comp id the gateway acceptor announces itself with.
const targetCompID = "GATEWAY"

// senderCompID derives the initiator comp id from the configured client id,
// so two relay processes with different client ids can never collide on one
// session at the gateway.
func senderCompID(clientID int) string {
	return fmt.Sprintf("TRADEHOOK%d", clientID)
}

// buildSettings renders the quickfix session settings for one endpoint. The
// session store is in-memory: sequence numbers reset on logon, which is the
// right behaviour for a relay that never resends historical traffic.
func buildSettings(ep relay.Endpoint, fixLogPath string) (*quickfix.Settings, error) {
	text := fmt.Sprintf(`[DEFAULT]
SocketConnectHost=%s
SocketConnectPort=%d
HeartBtInt=30
ResetOnLogon=Y
FileLogPath=%s

[SESSION]
BeginString=FIX.4.4
SenderCompID=%s
TargetCompID=%s
StartTime=00:00:00
EndTime=00:00:00
`, ep.Host, ep.Port, fixLogPath, senderCompID(ep.ClientID), targetCompID)

	return quickfix.ParseSettings(strings.NewReader(text))
}
