package gateway

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/google/uuid"
)

var binaryTypes = map[string]bool{
	"BINARY":     true,
	"VARBINARY":  true,
	"IMAGE":      true,
	"TIMESTAMP":  true,
	"ROWVERSION": true,
}

// convertValue maps a scanned driver value to the gateway's value set:
// int64, float64, bool, string, time.Time or nil.
func convertValue(dbType string, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int64, float64, bool, string, time.Time:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int16:
		return int64(val)
	case int8:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return strconv.FormatUint(val, 10)
		}
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return convertBytes(strings.ToUpper(dbType), val)
	default:
		return val
	}
}

func convertBytes(dbType string, b []byte) any {
	switch {
	case dbType == "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return hexString(b)
		}
		return uuid.UUID(id).String()
	case binaryTypes[dbType]:
		return hexString(b)
	default:
		// DECIMAL, NUMERIC, MONEY and SMALLMONEY arrive as exact text.
		return string(b)
	}
}

func hexString(b []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

// FormatValue renders a converted value as text. NULL becomes "".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
