package parcellate

// Version is the library version, overridden at release time via ldflags.
var Version = "0.4.0"
