package lifecycle

// CommissionPercent is the platform's share of every completed task.
const CommissionPercent = 10

// Split divides a task payment into the student's share (floor of 90%) and
// the platform commission (the remainder), so the two always sum to amount.
func Split(amount int64) (studentShare, commission int64) {
	const studentPercent = 100 - CommissionPercent
	// amount*90 can overflow int64 for very large amounts; split into whole
	// hundreds and the remainder instead.
	studentShare = (amount/100)*studentPercent + (amount%100)*studentPercent/100
	return studentShare, amount - studentShare
}
