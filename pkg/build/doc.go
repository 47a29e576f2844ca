// Package build implements the Build Pipeline: turning
// a Recipe into published layers, either by compiling a binary build
// inside a runtime (BinaryPackageBuilder) or by collecting a recipe's
// declared sources into a single Source layer (SourceBuilder).
package build
