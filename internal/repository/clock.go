package repository

import "time"

// nowFn stamps updated_at on balance changes. Tests may replace it.
var nowFn = time.Now
