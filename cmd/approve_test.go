package cmd

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/mselser95/dutch-filler/internal/testutil"
	"github.com/mselser95/dutch-filler/pkg/config"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApproveCommand_Structure tests command is properly configured
func TestApproveCommand_Structure(t *testing.T) {
	if approveCmd == nil {
		t.Fatal("approveCmd is nil")
	}

	if approveCmd.Use != "approve" {
		t.Errorf("expected Use='approve', got '%s'", approveCmd.Use)
	}

	if approveCmd.RunE == nil {
		t.Error("RunE function is nil")
	}
}

// TestApproveCommand_Flags tests command flags are defined
func TestApproveCommand_Flags(t *testing.T) {
	amountFlag := approveCmd.Flags().Lookup("amount")
	if amountFlag == nil {
		t.Fatal("amount flag not defined")
	}

	if amountFlag.Shorthand != "a" {
		t.Errorf("expected amount shorthand 'a', got '%s'", amountFlag.Shorthand)
	}

	if amountFlag.DefValue != "unlimited" {
		t.Errorf("expected amount default 'unlimited', got '%s'", amountFlag.DefValue)
	}

	rpcFlag := approveCmd.Flags().Lookup("rpc")
	if rpcFlag == nil {
		t.Fatal("rpc flag not defined")
	}

	if rpcFlag.Shorthand != "r" {
		t.Errorf("expected rpc shorthand 'r', got '%s'", rpcFlag.Shorthand)
	}

	if approveCmd.Flags().Lookup("token") == nil {
		t.Error("token flag not defined")
	}
}

func TestParseApproveAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    string
		wantErr bool
	}{
		{name: "unlimited", amount: "unlimited", want: math.MaxBig256.String()},
		{name: "whole units", amount: "1000", want: "1000000000"},
		{name: "fractional", amount: "0.5", want: "500000"},
		{name: "below precision", amount: "0.0000001", wantErr: true},
		{name: "zero", amount: "0", wantErr: true},
		{name: "negative", amount: "-5", wantErr: true},
		{name: "garbage", amount: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseApproveAmount(tt.amount, testutil.USDC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseApproveAmount_UnlimitedIsCopy(t *testing.T) {
	got, err := parseApproveAmount(unlimitedApproval, testutil.USDC)
	require.NoError(t, err)

	got.SetInt64(1)
	assert.Equal(t, 256, math.MaxBig256.BitLen())
}

func TestSelectTokens(t *testing.T) {
	tokens := types.TokenList{testutil.USDC, testutil.USDT}

	all, err := selectTokens(tokens, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := selectTokens(tokens, "usdt")
	require.NoError(t, err)
	assert.Equal(t, types.TokenList{testutil.USDT}, one)

	_, err = selectTokens(tokens, "DAI")
	assert.ErrorContains(t, err, "USDC,USDT")
}

func TestSignerKey(t *testing.T) {
	_, err := signerKey(&config.Config{})
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "FILLER_PRIVATE_KEY", cfgErr.Key)

	_, err = signerKey(&config.Config{PrivateKey: "0xnothex"})
	assert.Error(t, err)

	key, err := signerKey(&config.Config{PrivateKey: "0x" + testKey})
	require.NoError(t, err)
	assert.NotNil(t, key)
}

func TestFillerAddress(t *testing.T) {
	addr, err := fillerAddress(&config.Config{FillerAddress: "0x000000000000000000000000000000000000f111"})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x000000000000000000000000000000000000f111"), addr)

	fromKey, err := fillerAddress(&config.Config{PrivateKey: testKey})
	require.NoError(t, err)
	assert.NotEqual(t, addr, fromKey)

	_, err = fillerAddress(&config.Config{})
	assert.Error(t, err)
}

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestApprovalTarget(t *testing.T) {
	reactor := common.HexToAddress("0x1bd1aAdc9E230626C44a139d7E70d842749351eb")
	inputs := types.TokenList{testutil.WETH}
	outputs := types.TokenList{testutil.USDC}

	target, err := approvalTarget(42161, reactor, inputs, outputs, false)
	require.NoError(t, err)
	assert.Equal(t, reactor, target.spender)
	assert.Equal(t, outputs, target.tokens)

	target, err = approvalTarget(42161, reactor, inputs, outputs, true)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"), target.spender)
	assert.Equal(t, inputs, target.tokens)

	_, err = approvalTarget(5, reactor, inputs, outputs, true)
	assert.Error(t, err)
}
