package swap

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const erc20ABIJSON = `[
	{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// SwapRouter02 exactInputSingle; unlike the original V3 router there is no
// deadline field in the params struct.
const swapRouterABIJSON = `[
	{"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct IV3SwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"}
]`

// Custom errors raised by the restricted-actions guard attached to the Safe.
const guardErrorsABIJSON = `[
	{"inputs":[{"internalType":"address","name":"target","type":"address"}],"name":"TargetNotAllowed","type":"error"},
	{"inputs":[{"internalType":"bytes4","name":"selector","type":"bytes4"}],"name":"SelectorNotAllowed","type":"error"},
	{"inputs":[{"internalType":"address","name":"token","type":"address"}],"name":"TokenNotAllowed","type":"error"},
	{"inputs":[],"name":"DelegateCallNotAllowed","type":"error"}
]`

var (
	erc20ABI      = mustParseABI(erc20ABIJSON)
	swapRouterABI = mustParseABI(swapRouterABIJSON)
	guardABI      = mustParseABI(guardErrorsABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// feeMedium is the 0.30% Uniswap V3 fee tier used for every swap.
var feeMedium = big.NewInt(3000)

// ExactInputSingleParams mirrors IV3SwapRouter.ExactInputSingleParams.
type ExactInputSingleParams struct {
	TokenIn           common.Address `abi:"tokenIn"`
	TokenOut          common.Address `abi:"tokenOut"`
	Fee               *big.Int       `abi:"fee"`
	Recipient         common.Address `abi:"recipient"`
	AmountIn          *big.Int       `abi:"amountIn"`
	AmountOutMinimum  *big.Int       `abi:"amountOutMinimum"`
	SqrtPriceLimitX96 *big.Int       `abi:"sqrtPriceLimitX96"`
}

func packAllowance(owner, spender common.Address) ([]byte, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance call: %w", err)
	}
	return data, nil
}

func packApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve call: %w", err)
	}
	return data, nil
}

func packExactInputSingle(params ExactInputSingleParams) ([]byte, error) {
	data, err := swapRouterABI.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("failed to pack exactInputSingle call: %w", err)
	}
	return data, nil
}

// decodeExactInputSingle reverses packExactInputSingle.
func decodeExactInputSingle(calldata []byte) (ExactInputSingleParams, error) {
	method := swapRouterABI.Methods["exactInputSingle"]
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], method.ID) {
		return ExactInputSingleParams{}, errors.New("calldata is not an exactInputSingle call")
	}
	values, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return ExactInputSingleParams{}, fmt.Errorf("failed to unpack exactInputSingle call: %w", err)
	}
	if len(values) != 1 {
		return ExactInputSingleParams{}, fmt.Errorf("unexpected argument count: %d", len(values))
	}
	params := *abi.ConvertType(values[0], new(ExactInputSingleParams)).(*ExactInputSingleParams)
	return params, nil
}

// decodeGuardError matches revert data against the guard's custom errors and
// renders it as Name(arg,arg). Returns false when the data is not one of the
// guard's errors.
func decodeGuardError(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	for _, guardErr := range guardABI.Errors {
		if !bytes.Equal(guardErr.ID.Bytes()[:4], data[:4]) {
			continue
		}
		values, err := guardErr.Inputs.Unpack(data[4:])
		if err != nil {
			return "", false
		}
		args := make([]string, 0, len(values))
		for _, value := range values {
			args = append(args, formatErrorArg(value))
		}
		return fmt.Sprintf("%s(%s)", guardErr.Name, strings.Join(args, ",")), true
	}
	return "", false
}

func formatErrorArg(value any) string {
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case [4]byte:
		return hexutil.Encode(v[:])
	case *big.Int:
		return v.String()
	case []byte:
		return hexutil.Encode(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// dataError is the shape of go-ethereum RPC errors that carry revert data.
type dataError interface {
	Error() string
	ErrorData() interface{}
}

// revertData extracts raw revert bytes from an RPC error, when present.
func revertData(err error) ([]byte, bool) {
	var de dataError
	if !errors.As(err, &de) {
		return nil, false
	}
	switch raw := de.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(raw)
		if decodeErr != nil {
			return nil, false
		}
		return decoded, true
	case hexutil.Bytes:
		return raw, true
	case []byte:
		return raw, true
	default:
		return nil, false
	}
}

// describeError renders a lower-layer error for the user: the decoded guard
// error when the revert data matches, the raw message otherwise.
func describeError(err error) string {
	if data, ok := revertData(err); ok {
		if decoded, ok := decodeGuardError(data); ok {
			return decoded
		}
	}
	return err.Error()
}
