// internal/blockchain/evm/revert.go
package evm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const executionReverted = "execution reverted"

// RevertReason extracts the Error(string) reason from a node error, or from
// the error text when the node already decoded it. Empty if none.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if raw, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(raw); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, executionReverted+": "); i >= 0 {
		return strings.TrimSpace(msg[i+len(executionReverted)+2:])
	}
	return ""
}

// IsRevert reports whether err is an execution revert rather than a
// transport failure. Reverts are never worth retrying.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), executionReverted)
}

// ErrorAnalyzer turns node errors into structured fields for logs.
type ErrorAnalyzer struct {
	logger *zap.Logger
}

func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{logger: logger.Named("error-analyzer")}
}

// Analyze classifies err. The result is safe to marshal.
func (ea *ErrorAnalyzer) Analyze(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{"error": "no error provided"}
	}

	result := map[string]interface{}{
		"type":    "generic_error",
		"message": err.Error(),
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		result["type"] = "rpc_error"
		result["code"] = rpcErr.ErrorCode()
	}

	if IsRevert(err) {
		result["type"] = "revert"
		if reason := RevertReason(err); reason != "" {
			result["reason"] = reason
			ea.logger.Warn("Contract reverted", zap.String("reason", reason))
		}
	}
	return result
}

// Format renders an analysis for logs or terminal output.
func (ea *ErrorAnalyzer) Format(analysis map[string]interface{}) string {
	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting analysis: %v", err)
	}
	return string(out)
}
