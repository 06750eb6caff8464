//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"strconv"
	"time"
)

var (
	pedals [NUM_PEDALS]machine.ADC
	serial = machine.Serial // USB CDC on the XIAO
	line   []byte

	// ADC averaging - running sums per pedal, one shared sample count
	sums  [NUM_PEDALS]uint32
	count int

	// Timing
	lastADCRead time.Time
)

func main() {
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}

	// Configure ADC pins in wire order: gas, brake, clutch
	for i, pin := range [NUM_PEDALS]machine.Pin{PIN_GAS, PIN_BRAKE, PIN_CLUTCH} {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		pedals[i] = machine.ADC{Pin: pin}
		pedals[i].Configure(adcConfig)
	}

	serial.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()

	for {
		now := time.Now()

		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			readPedals()
			lastADCRead = now
		}

		if count >= NUM_SAMPLES {
			outputAveragedValues()
			sums = [NUM_PEDALS]uint32{}
			count = 0
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func readPedals() {
	for i := range pedals {
		// Get returns 16 bit values regardless of resolution
		sums[i] += uint32(pedals[i].Get() >> ADC_SHIFT)
	}
	count++
}

// outputAveragedValues writes "gas;brake;clutch\n", e.g. "120;450;10\n".
func outputAveragedValues() {
	line = line[:0]
	for i := range sums {
		if i > 0 {
			line = append(line, ';')
		}
		line = strconv.AppendUint(line, uint64(sums[i]/uint32(count)), 10)
	}
	line = append(line, '\n')
	serial.Write(line)
}
