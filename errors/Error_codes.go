package errors

// ERR is the numeric code carried by every *Error.
//
//nolint:revive,stylecheck // names mirror the wire enum used across services
type ERR int32

const (
	ERR_UNKNOWN          ERR = 0
	ERR_INVALID_ARGUMENT ERR = 1
	ERR_NOT_FOUND        ERR = 3
	ERR_PROCESSING       ERR = 4
	ERR_CONFIGURATION    ERR = 5
	ERR_ERROR            ERR = 9

	// block errors 10-19
	ERR_BLOCK_NOT_FOUND        ERR = 10
	ERR_BLOCK_INVALID          ERR = 11
	ERR_BLOCK_EXISTS           ERR = 12
	ERR_BLOCK_ERROR            ERR = 13
	ERR_BLOCK_PARENT_NOT_FOUND ERR = 14

	// transaction errors 30-39
	ERR_TX_NOT_FOUND            ERR = 30
	ERR_TX_INVALID              ERR = 31
	ERR_TX_INVALID_DOUBLE_SPEND ERR = 32
	ERR_TX_ALREADY_EXISTS       ERR = 33
	ERR_TX_ERROR                ERR = 39

	// utxo errors 60-69
	ERR_UTXO_NOT_FOUND ERR = 60
	ERR_UTXO_LEDGER    ERR = 61
	ERR_SPENT          ERR = 62

	// storage errors 70-79
	ERR_STORAGE_ERROR ERR = 79
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	9:  "ERROR",
	10: "BLOCK_NOT_FOUND",
	11: "BLOCK_INVALID",
	12: "BLOCK_EXISTS",
	13: "BLOCK_ERROR",
	14: "BLOCK_PARENT_NOT_FOUND",
	30: "TX_NOT_FOUND",
	31: "TX_INVALID",
	32: "TX_INVALID_DOUBLE_SPEND",
	33: "TX_ALREADY_EXISTS",
	39: "TX_ERROR",
	60: "UTXO_NOT_FOUND",
	61: "UTXO_LEDGER",
	62: "SPENT",
	79: "STORAGE_ERROR",
}

var ERR_value = func() map[string]int32 {
	m := make(map[string]int32, len(ERR_name))
	for k, v := range ERR_name {
		m[v] = k
	}

	return m
}()

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "UNKNOWN"
}

// Enum returns the symbolic name of the code.
func (x ERR) Enum() string {
	return x.String()
}
