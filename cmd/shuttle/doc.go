// Command shuttle moves data between a fileserver share and a cluster
// project space through the institutional datamover tools, with a scratch
// workspace cache for single-file access.
package main
