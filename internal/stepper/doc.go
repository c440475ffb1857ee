// Package stepper is the step orchestration engine. A Stepper runs one step
// group against one context: entries execute in order, dependencies are
// checked before each step, iterated groups repeat their entries, and a
// fatal status rolls back every executed step in reverse order. Multi runs
// a group once per context.
package stepper
