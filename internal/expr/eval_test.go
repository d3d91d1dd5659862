package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	vars := map[byte]int{'x': 7, 'y': 5}

	cases := []struct {
		in   string
		want float64
	}{
		{"40", 40},
		{"4*(6+4)", 40},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10-2-3", 5},
		{"7/2", 3.5},
		{"-3+10", 7},
		{"x", 7},
		{"2x", 14},     // implicit multiplication: numeral·variable
		{"(1+2)x", 21}, // implicit multiplication: close-paren·variable
		{"3(4+1)", 15}, // implicit multiplication: numeral·open-paren
		{"xy", 35},     // variable·variable
		{"2x+y", 19},
		{" 2 + 3 ", 5},
	}
	for _, c := range cases {
		got, err := Evaluate(c.in, vars)
		require.NoError(t, err, "input %q", c.in)
		assert.InDelta(t, c.want, got, 1e-9, "input %q", c.in)
	}
}

func TestEvaluateErrors(t *testing.T) {
	cases := []struct {
		in      string
		wantErr error
	}{
		{"", ErrEmpty},
		{"   ", ErrEmpty},
		{"4+*2", ErrSyntax},
		{"4+", ErrSyntax},
		{"(4+6", ErrSyntax},
		{"4 6", ErrSyntax},
		{"5/0", ErrDivByZero},
		{"4/(3-3)", ErrDivByZero},
		{"2a", ErrUnknownVar},
	}
	for _, c := range cases {
		_, err := Evaluate(c.in, map[byte]int{'x': 7})
		assert.ErrorIs(t, err, c.wantErr, "input %q", c.in)
	}
}

func TestInspectCardsAndOperators(t *testing.T) {
	u, err := Inspect("2*(3+4)", []int{2, 3, 4}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, u.CardsUsed)
	assert.Equal(t, 2, u.DistinctOperators)
	assert.False(t, u.HasExactDivision)
	assert.True(t, u.ParensEffective) // 2*3+4 != 2*(3+4)
	assert.False(t, u.UsesVariable)
}

func TestInspectIgnoresLiteralsOutsideHand(t *testing.T) {
	u, err := Inspect("40", []int{4, 6, 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, u.CardsUsed)
}

func TestInspectExactDivision(t *testing.T) {
	u, err := Inspect("(2+4)/3", []int{2, 4, 3}, nil)
	require.NoError(t, err)
	assert.True(t, u.HasExactDivision)
	assert.True(t, u.ParensEffective) // 2+4/3 != (2+4)/3

	u, err = Inspect("8/3", []int{8, 3}, nil)
	require.NoError(t, err)
	assert.False(t, u.HasExactDivision)
}

func TestInspectDecorativeParens(t *testing.T) {
	u, err := Inspect("2+(3*4)", []int{2, 3, 4}, nil)
	require.NoError(t, err)
	assert.False(t, u.ParensEffective)
}

func TestInspectVariables(t *testing.T) {
	u, err := Inspect("2x", []int{2}, map[byte]int{'x': 7})
	require.NoError(t, err)
	assert.True(t, u.UsesVariable)
	assert.Equal(t, 2, u.CardsUsed) // the card 2 plus the variable

	// A variable counts once no matter how often it appears.
	u, err = Inspect("x+x", nil, map[byte]int{'x': 7})
	require.NoError(t, err)
	assert.Equal(t, 1, u.CardsUsed)
}
