package client

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/program/oracle"
)

// classifySendError maps a transaction submission error to a
// *api.SubmissionError.
func classifySendError(err error) error {
	se := &api.SubmissionError{
		Class: api.ClassRetriable,
		Err:   err,
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		se.Logs = simulationLogs(rpcErr)
		if class, cause := oracle.ErrorFromLogs(se.Logs); cause != nil {
			se.Class = class
			se.Err = errors.WithContext(cause, rpcErr.Message)
			return se
		}
		if class, cause := oracle.ErrorFromLogs([]string{rpcErr.Message}); cause != nil {
			se.Class = class
			se.Err = errors.WithContext(cause, rpcErr.Message)
			return se
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		se.Class = api.ClassFatal
	case api.IsFatal(err):
		se.Class = api.ClassFatal
	}
	return se
}

// simulationLogs extracts the program logs from a failed preflight.
func simulationLogs(err *jsonrpc.RPCError) []string {
	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := data["logs"].([]interface{})
	if !ok {
		return nil
	}

	logs := make([]string, 0, len(raw))
	for _, v := range raw {
		if line, ok := v.(string); ok {
			logs = append(logs, strings.TrimSpace(line))
		}
	}
	return logs
}
