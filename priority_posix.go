//go:build linux && !rtos

package osal

// niceValues maps each priority to a nice value; lower is more urgent.
var niceValues = [...]int{
	PriorityNone:        19,
	PriorityIdle:        15,
	PriorityLow:         13,
	PriorityBelowNormal: 7,
	PriorityNormal:      0,
	PriorityAboveNormal: -7,
	PriorityHigh:        -13,
	PriorityRealtime:    -17,
	PriorityISR:         -20,
}

func (p ThreadDefaultPriority) nice() int {
	if int(p) >= len(niceValues) {
		return niceValues[PriorityISR]
	}
	return niceValues[p]
}

// priorityFromNice returns the least urgent priority whose nice value is
// not above n.
func priorityFromNice(n int) ThreadDefaultPriority {
	for p := PriorityNone; p < PriorityISR; p++ {
		if n >= niceValues[p] {
			return p
		}
	}
	return PriorityISR
}
