package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Function selects the variable-service routine run by the secure peer.
type Function uint64

const (
	FunctionGetVariable             Function = 1
	FunctionGetNextVariableName     Function = 2
	FunctionSetVariable             Function = 3
	FunctionQueryVariableInfo       Function = 4
	FunctionReadyToBoot             Function = 5
	FunctionExitBootService         Function = 6
	FunctionGetStatistics           Function = 7
	FunctionLockVariable            Function = 8
	FunctionVarCheckPropertySet     Function = 9
	FunctionVarCheckPropertyGet     Function = 10
	FunctionGetPayloadSize          Function = 11
	FunctionInitRuntimeCacheContext Function = 12
	FunctionSyncRuntimeCache        Function = 13
	FunctionGetRuntimeCacheInfo     Function = 14
)

var functionNames = map[Function]string{
	FunctionGetVariable:             "GET_VARIABLE",
	FunctionGetNextVariableName:     "GET_NEXT_VARIABLE_NAME",
	FunctionSetVariable:             "SET_VARIABLE",
	FunctionQueryVariableInfo:       "QUERY_VARIABLE_INFO",
	FunctionReadyToBoot:             "READY_TO_BOOT",
	FunctionExitBootService:         "EXIT_BOOT_SERVICE",
	FunctionGetStatistics:           "GET_STATISTICS",
	FunctionLockVariable:            "LOCK_VARIABLE",
	FunctionVarCheckPropertySet:     "VAR_CHECK_PROPERTY_SET",
	FunctionVarCheckPropertyGet:     "VAR_CHECK_PROPERTY_GET",
	FunctionGetPayloadSize:          "GET_PAYLOAD_SIZE",
	FunctionInitRuntimeCacheContext: "INIT_RUNTIME_CACHE_CONTEXT",
	FunctionSyncRuntimeCache:        "SYNC_RUNTIME_CACHE",
	FunctionGetRuntimeCacheInfo:     "GET_RUNTIME_CACHE_INFO",
}

// Functions returns the catalog in code order.
func Functions() []Function {
	out := make([]Function, 0, len(functionNames))
	for fn := FunctionGetVariable; fn <= FunctionGetRuntimeCacheInfo; fn++ {
		out = append(out, fn)
	}
	return out
}

// Known reports whether fn is in the catalog.
func (fn Function) Known() bool {
	_, ok := functionNames[fn]
	return ok
}

// NotifyOnly reports whether fn carries no body.
func (fn Function) NotifyOnly() bool {
	return fn == FunctionReadyToBoot || fn == FunctionExitBootService
}

func (fn Function) String() string {
	if name, ok := functionNames[fn]; ok {
		return name
	}
	return fmt.Sprintf("FUNCTION(%d)", uint64(fn))
}

// ParseFunction accepts a catalog name in any case or a decimal code.
func ParseFunction(raw string) (Function, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for fn, n := range functionNames {
		if n == name {
			return fn, nil
		}
	}
	code, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown function %q", ErrParam, raw)
	}
	return Function(code), nil
}
