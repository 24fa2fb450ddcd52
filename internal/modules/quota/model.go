// README: Monthly AI request allowance: sentinel error and defaults.
package quota

import "errors"

// ErrQuotaExceeded is returned when a user has no requests remaining for the current month.
var ErrQuotaExceeded = errors.New("monthly ai request quota exceeded")

// DefaultAllowance is the number of planning requests granted per month.
const DefaultAllowance = 100

const monthLayout = "2006-01"
