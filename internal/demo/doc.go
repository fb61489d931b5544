// Package demo is a small application built on the reducer core: a counter,
// a todo list, a debounced search box and an optional detail editor, combined
// into one App reducer.
//
// It exists to exercise every effect kind and composition operator end to
// end, and backs the CLI's run, replay and test commands.
//
// Actions are flat structs. Each feature has a sealed interface embedding
// Action, so a feature's actions are also App actions and the prisms that
// route them are plain type assertions.
package demo
