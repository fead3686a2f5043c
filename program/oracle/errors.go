package oracle

import (
	"strings"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

type logPattern struct {
	substr string
	err    error
	class  api.ErrorClass
}

var logPatterns = []logPattern{
	{"CrankNoElementsReady", api.ErrQueueNotReady, api.ClassBenign},
	{"CrankEmptyError", api.ErrQueueNotReady, api.ClassBenign},
	{"already been processed", api.ErrRowPopped, api.ClassBenign},
}

// ErrorFromLogs maps program logs of a failed unit to a crank error.
//
// It returns ClassNone and a nil error when no log line is recognized.
func ErrorFromLogs(logs []string) (api.ErrorClass, error) {
	for _, line := range logs {
		for _, p := range logPatterns {
			if strings.Contains(line, p.substr) {
				return p.class, p.err
			}
		}
	}
	return api.ClassNone, nil
}
