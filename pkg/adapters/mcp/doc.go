// Package mcp exposes a tubelife engine as Model Context Protocol tools and
// resources, so agents can drive and inspect a rig.
package mcp
