// Package prediction adapts trained predictors to the forecast pipeline.
// A predictor is either joint (one call returns trips and passengers for each
// row) or split (one predictor per target). Both shapes sit behind Backend,
// which batches rows, checks output shapes and clamps raw values so that no
// prediction leaving the package is negative or NaN.
package prediction
