// Package predictor provides the prediction backends selectable from the
// artifact bundle: "linear" evaluates stored regression coefficients with
// gonum, "remote" calls an HTTP model server, and "simulation" draws
// reproducible synthetic values for demos. Each registers itself with
// prediction.RegisterBackend.
package predictor
