// Package publish implements the C14 publishing operations that sit
// outside the build pipeline itself: deprecating and undeprecating an
// already-published build, and running a recipe's declared test
// stages (sources/build/install) against a working directory (
// "C14 Publishing & Test Drivers").
package publish
