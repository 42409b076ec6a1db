package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateFoodNeeds(t *testing.T) {
	assert.Equal(t, "30 apples, 20 bananas, and 10 oranges are needed for 10 people.", EstimateFoodNeeds(10).String())
	assert.Equal(t, "0 apples, 0 bananas, and 0 oranges are needed for 0 people.", EstimateFoodNeeds(0).String())
}

func TestEstimateDispatch(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{n: 250, want: "2 helicopters dispatched, 5 police dispatched and 1 special forces"},
		{n: 1000, want: "10 helicopters dispatched, 20 police dispatched and 5 special forces"},
		{n: 199, want: "1 helicopters dispatched, 3 police dispatched and 0 special forces"},
		{n: 49, want: "0 helicopters dispatched, 0 police dispatched and 0 special forces"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateDispatch(tt.n).String())
	}
}

func TestParseNumberArg(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int
		wantErr bool
	}{
		{name: "integer", args: `{"number": 250}`, want: 250},
		{name: "zero", args: `{"number": 0}`, want: 0},
		{name: "string", args: `{"number": "250"}`, wantErr: true},
		{name: "float", args: `{"number": 2.5}`, wantErr: true},
		{name: "negative", args: `{"number": -1}`, wantErr: true},
		{name: "missing", args: `{}`, wantErr: true},
		{name: "null", args: `{"number": null}`, wantErr: true},
		{name: "not json", args: `250`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNumberArg(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFoodNeedsToolInvoke(t *testing.T) {
	tool := NewFoodNeedsTool()
	ctx := context.Background()

	info, err := tool.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, FoodToolName, info.Name)

	out, err := tool.InvokableRun(ctx, `{"number": 4}`)
	require.NoError(t, err)
	assert.Equal(t, "12 apples, 8 bananas, and 4 oranges are needed for 4 people.", out)

	out, err = tool.InvokableRun(ctx, `{"number": "four"}`)
	require.NoError(t, err, "参数错误不应中断 Agent")
	assert.True(t, strings.HasPrefix(out, "Error:"))
}

func TestDispatchToolInvoke(t *testing.T) {
	tool := NewDispatchTool()
	ctx := context.Background()

	out, err := tool.InvokableRun(ctx, `{"number": 500}`)
	require.NoError(t, err)
	assert.Equal(t, "5 helicopters dispatched, 10 police dispatched and 2 special forces", out)

	out, err = tool.InvokableRun(ctx, `{"number": -20}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Error:"))
}
