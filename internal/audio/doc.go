// Package audio loads audio files into mono float waveforms, writes them back
// as PCM WAV and perturbs them with synthetic adversarial noise.
package audio
