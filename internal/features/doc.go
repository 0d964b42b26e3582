// Package features computes mel power spectrograms and MFCCs.
//
// Defaults follow the conventions of common speech toolkits: 2048-point
// FFT, hop of 512 samples, periodic Hann window, centered frames with zero
// padding, 128 mel bands on the Slaney scale with Slaney area normalization,
// and an orthonormal DCT-II over the log-mel energies.
package features
