package bbruntime

// DeviceRate is the fixed output rate of the audio and export paths.
const DeviceRate = 44100

// Rates lists the logical rates offered by the players.
var Rates = []int{8000, 11025, 16000, 22050, 32000, 44100, 48000}

// NearestRate returns rate when it is one of Rates and 8000 otherwise.
func NearestRate(rate int) int {
	for _, r := range Rates {
		if r == rate {
			return r
		}
	}
	return Rates[0]
}

// Clock converts device samples into bytebeat ticks. Every device sample
// adds logical/device to a fractional accumulator; whole steps move into T
// and the fraction is kept so the phase never drifts.
type Clock struct {
	T    uint32
	acc  float64
	step float64
}

func NewClock(logicalRate, deviceRate int) *Clock {
	c := &Clock{}
	c.SetRate(logicalRate, deviceRate)
	return c
}

func (c *Clock) SetRate(logicalRate, deviceRate int) {
	if deviceRate <= 0 {
		deviceRate = DeviceRate
	}
	if logicalRate <= 0 {
		logicalRate = Rates[0]
	}
	c.step = float64(logicalRate) / float64(deviceRate)
}

func (c *Clock) Step() float64 {
	return c.step
}

func (c *Clock) Advance() {
	c.acc += c.step
	if c.acc >= 1 {
		steps := uint32(c.acc)
		c.T += steps
		c.acc -= float64(steps)
	}
	if c.acc > 100 {
		c.acc = 0
	}
}

func (c *Clock) Reset() {
	c.T = 0
	c.acc = 0
}
