package ezlink

import (
	"encoding/binary"
	"strings"
	"time"
)

// TransactionLen is the size of one purse log record.
const TransactionLen = 16

// epoch is the zero of the record timestamps.
var epoch = time.Unix(788947200-16*3600, 0).UTC()

type TransactionType byte

const (
	TxMRT       TransactionType = 0x30
	TxBus       TransactionType = 0x31
	TxBusRefund TransactionType = 0x76
	TxCreation  TransactionType = 0x75
	TxRetail    TransactionType = 0x03
	TxService   TransactionType = 0x62
	TxTopUp     TransactionType = 0xF0
)

func (t TransactionType) String() string {
	switch t {
	case TxMRT:
		return "mrt"
	case TxBus:
		return "bus"
	case TxBusRefund:
		return "bus_refund"
	case TxCreation:
		return "creation"
	case TxRetail:
		return "retail"
	case TxService:
		return "service"
	case TxTopUp:
		return "top_up"
	default:
		return "unknown"
	}
}

// Transaction is one decoded log record.
type Transaction struct {
	Type     TransactionType
	Amount   int32
	Time     time.Time
	UserData string
}

// ParseTransaction decodes a 16-byte record: type, signed 24-bit amount,
// big-endian timestamp, 8 bytes of ASCII user data. Shorter records are
// zero-padded so every log entry yields a trip.
func ParseTransaction(rec []byte) Transaction {
	buf := make([]byte, TransactionLen)
	copy(buf, rec)

	amount := int32(buf[1])<<16 | int32(buf[2])<<8 | int32(buf[3])
	if amount&0x800000 != 0 {
		amount -= 1 << 24
	}
	secs := binary.BigEndian.Uint32(buf[4:8])
	return Transaction{
		Type:     TransactionType(buf[0]),
		Amount:   amount,
		Time:     epoch.Add(time.Duration(secs) * time.Second),
		UserData: printable(buf[8:16]),
	}
}

func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c < 0x20 || c > 0x7E {
			c = ' '
		}
		out[i] = c
	}
	return strings.TrimRight(string(out), " ")
}

// RouteCode returns the bus service in the user data ("SVC" + code), with
// spaces removed, or "" for records that carry none.
func (tx Transaction) RouteCode() string {
	if tx.Type != TxBus && tx.Type != TxBusRefund {
		return ""
	}
	if !strings.HasPrefix(tx.UserData, "SVC") {
		return ""
	}
	code := tx.UserData[3:]
	if len(code) > 4 {
		code = code[:4]
	}
	return strings.ReplaceAll(code, " ", "")
}
