//go:build tinygo

package main

import "machine"

const (
	NUM_PEDALS = 3

	// Sampling configuration
	SAMPLE_INTERVAL_MS = 1  // ADC read interval in milliseconds
	NUM_SAMPLES        = 10 // Number of samples to average, 100 lines per second

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 10   // Reported range 0-1023, matches the default threshold of 300
	ADC_SHIFT        = 16 - ADC_RESOLUTION

	// Pedal potentiometers
	PIN_GAS    = machine.A0
	PIN_BRAKE  = machine.A1
	PIN_CLUTCH = machine.A2

	// Serial configuration
	// Format "gas;brake;clutch\n", at most "1023;1023;1023\n" = 15 bytes per line
	// 100 lines/sec * 15 bytes = 1,500 bytes/sec, 115200 baud gives ~7.7x headroom
	UART_BAUD_RATE = 115200
)
