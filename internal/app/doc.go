// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle that turns an annotation
// export into a trained model, decoupled from any specific entrypoint like a
// CLI.
package app
