// Package params holds the named parameters of a light-curve fit.
//
// A Store maps fully qualified keys to Parameter records. Keys are built
// from a base title, an optional planet suffix ("" for planet 0, "1" for
// planet 1, ...) and an optional channel suffix ("" for channel 0, "_2"
// for channel 2). Free parameters are replicated once per fitted channel;
// shared parameters keep a single value across channels.
//
// The store is owned by the fitting driver. Model code only reads from it;
// concurrent evaluations must each work on their own Clone.
package params
