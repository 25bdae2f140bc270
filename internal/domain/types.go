package domain

import (
	"database/sql/driver"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a checksummed Ethereum-style account address. Callers of every
// contract entry point are identified by one.
type Address string

// ZeroAddress is the null account. It never holds roles and never owns tokens.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and checksums a hex address
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address(common.HexToAddress(s).Hex()), nil
}

// MustAddress parses an address or panics. Test and bootstrap helper.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the checksummed hex form
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is the null account
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// Amount is a non-negative wei-scale integer. It marshals as a decimal string
// and is stored as numeric(78,0), matching on-chain value widths.
type Amount struct {
	i big.Int
}

// NewAmount parses a decimal string into an Amount
func NewAmount(s string) (Amount, error) {
	var a Amount
	if s == "" {
		return a, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok || i.Sign() < 0 {
		return a, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	a.i.Set(i)
	return a, nil
}

// MustAmount parses a decimal string or panics. Test and bootstrap helper.
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ZeroAmount returns the zero value
func ZeroAmount() Amount {
	return Amount{}
}

// String returns the decimal representation
func (a Amount) String() string {
	return a.i.String()
}

// IsZero reports whether the amount is zero
func (a Amount) IsZero() bool {
	return a.i.Sign() == 0
}

// Cmp compares a and b, returning -1, 0 or 1
func (a Amount) Cmp(b Amount) int {
	return a.i.Cmp(&b.i)
}

// Equal reports whether a == b
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// Add returns a + b
func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.i.Add(&a.i, &b.i)
	return out
}

// MarshalJSON encodes the amount as a decimal JSON string
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.i.String() + `"`), nil
}

// UnmarshalJSON decodes a decimal JSON string
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := NewAmount(s)
	if err != nil {
		return err
	}
	a.i.Set(&parsed.i)
	return nil
}

// Value implements driver.Valuer so Amounts map onto numeric columns
func (a Amount) Value() (driver.Value, error) {
	return a.i.String(), nil
}

// Scan implements sql.Scanner
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := NewAmount(v)
		if err != nil {
			return err
		}
		a.i.Set(&parsed.i)
		return nil
	case []byte:
		return a.Scan(string(v))
	case int64:
		a.i.SetInt64(v)
		return nil
	case nil:
		a.i.SetInt64(0)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
}

// Role is a named capability grant
type Role string

const (
	// RoleDefaultAdmin controls role membership itself
	RoleDefaultAdmin Role = "default_admin"
	// RoleAdmin gates monitoring updates, minting, selling, parameter changes
	// and withdrawals
	RoleAdmin Role = "admin"
)

// IsValidRole reports whether r names a known role
func IsValidRole(r Role) bool {
	return r == RoleDefaultAdmin || r == RoleAdmin
}

// Parameter keys for the admin-mutable global scalars
const (
	// ParamDonation is the minimum payment required to register an area
	ParamDonation = "donation"
	// ParamPrice is the price stamped onto every newly minted satellite image
	ParamPrice = "price"
)
