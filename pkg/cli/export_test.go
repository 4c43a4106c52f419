package cli

import "github.com/secmon-lab/clacks/pkg/domain/model"

var RunWithIO = run

// AcceptMessage applies the listen output filter to msg
func AcceptMessage(fromUserID string, includeBots bool, msg model.Message) bool {
	return messageFilter{fromUserID: fromUserID, includeBots: includeBots}.accept(msg)
}

