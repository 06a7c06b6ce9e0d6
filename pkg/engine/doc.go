// Package engine turns a parsed form definition into a runnable page
// graph. The Model compiles pages, components and conditions once per
// form load; every request then derives a fresh FormContext holding the
// relevant pages, evaluation state and validation errors for the
// session's current answers.
package engine
