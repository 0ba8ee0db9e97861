package wallet

import "fmt"

// Argument kinds of a transaction block command.
const (
	ArgPure   = "pure"
	ArgGas    = "gas"
	ArgResult = "result"
)

// Argument is an input to a transaction block command: a pure value, the gas
// coin, or the result of an earlier command.
type Argument struct {
	Kind  string      `json:"kind"`
	Type  string      `json:"type,omitempty"`
	Value interface{} `json:"value,omitempty"`
	Index int         `json:"index,omitempty"`
}

func PureString(s string) Argument { return Argument{Kind: ArgPure, Type: "string", Value: s} }

// PureU64 encodes v as a decimal string so that it survives JSON number
// precision on the wallet side.
func PureU64(v uint64) Argument {
	return Argument{Kind: ArgPure, Type: "u64", Value: fmt.Sprintf("%d", v)}
}

func Gas() Argument { return Argument{Kind: ArgGas} }

// Command kinds.
const (
	CmdMoveCall   = "MoveCall"
	CmdSplitCoins = "SplitCoins"
)

type Command struct {
	Kind      string     `json:"kind"`
	Target    string     `json:"target,omitempty"`
	Arguments []Argument `json:"arguments,omitempty"`
	Coin      *Argument  `json:"coin,omitempty"`
	Amounts   []Argument `json:"amounts,omitempty"`
}

// TransactionBlock is the programmable transaction handed to the wallet for
// signing, encoded as JSON.
type TransactionBlock struct {
	Commands  []Command `json:"commands"`
	GasBudget uint64    `json:"gasBudget,omitempty"`
}

func NewTransactionBlock() *TransactionBlock {
	return &TransactionBlock{Commands: []Command{}}
}

func (b *TransactionBlock) add(cmd Command) Argument {
	b.Commands = append(b.Commands, cmd)
	return Argument{Kind: ArgResult, Index: len(b.Commands) - 1}
}

// MoveCall appends a call of target and returns a reference to its result.
func (b *TransactionBlock) MoveCall(target string, args ...Argument) Argument {
	return b.add(Command{Kind: CmdMoveCall, Target: target, Arguments: args})
}

// SplitCoins splits amounts off coin and returns a reference to the new coin.
func (b *TransactionBlock) SplitCoins(coin Argument, amounts ...Argument) Argument {
	return b.add(Command{Kind: CmdSplitCoins, Coin: &coin, Amounts: amounts})
}

func (b *TransactionBlock) SetGasBudget(budget uint64) {
	b.GasBudget = budget
}

// Empty reports whether b has no commands. A nil block is empty.
func (b *TransactionBlock) Empty() bool {
	return b == nil || len(b.Commands) == 0
}
