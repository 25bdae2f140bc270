package domain

import "errors"

// Revert reasons. Every mutating entry point fails atomically with one of
// these; callers must not assume partial effects persist.
var (
	// ErrInvalidAddress is returned when an address fails hex validation
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidAmount is returned when an amount is not a non-negative decimal
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientDonation is returned when a registration payment is below
	// the donation minimum
	ErrInsufficientDonation = errors.New("donation below minimum")

	// ErrNameTaken is returned when registering an area under a used name
	ErrNameTaken = errors.New("area name already used")

	// ErrAreaNotFound is returned when an area id is outside the allocated range
	ErrAreaNotFound = errors.New("protected area not found")

	// ErrNameMismatch is returned when the supplied name does not match the
	// record stored at the supplied area id
	ErrNameMismatch = errors.New("area name does not match id")

	// ErrMonitoringRecorded is returned when monitoring fields are already
	// populated; monitoring data is write-once
	ErrMonitoringRecorded = errors.New("monitoring data already recorded")

	// ErrMonitoringSeries is returned when the detection-date and forest-cover
	// series differ in length
	ErrMonitoringSeries = errors.New("monitoring series length mismatch")

	// ErrImageNotFound is returned when an image id is outside the allocated range
	ErrImageNotFound = errors.New("satellite image not found")

	// ErrAlreadySold is returned when buying an image whose sold flag is set
	ErrAlreadySold = errors.New("satellite image already sold")

	// ErrWrongPayment is returned when a buy payment differs from the image price
	ErrWrongPayment = errors.New("payment does not equal image price")

	// ErrNotTokenOwner is returned when the caller does not own the token
	ErrNotTokenOwner = errors.New("caller is not token owner")

	// ErrNotApproved is returned when the registry has not been approved as
	// transfer operator for the token
	ErrNotApproved = errors.New("registry not approved for token")

	// ErrTokenNotFound is returned when a token id has never been minted
	ErrTokenNotFound = errors.New("token not found")

	// ErrUnauthorized is returned when the caller lacks the required role
	ErrUnauthorized = errors.New("caller lacks required role")

	// ErrReentrantCall is returned when a sell/buy invocation arrives while
	// another one is in flight
	ErrReentrantCall = errors.New("reentrant call")

	// ErrPageOutOfRange is returned when a pagination window starts at or past
	// the match count
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrSameValue is returned by parameter updates that would be no-ops
	ErrSameValue = errors.New("value equals current value")

	// ErrZeroValue is returned by parameter updates with a zero value
	ErrZeroValue = errors.New("value must be nonzero")

	// ErrNoBalance is returned when withdrawing from an empty registry balance
	ErrNoBalance = errors.New("registry balance is zero")

	// ErrRoleNotGranted is returned when revoking a role the address does not hold
	ErrRoleNotGranted = errors.New("role not granted")
)
