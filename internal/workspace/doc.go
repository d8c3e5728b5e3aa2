// Package workspace wraps the HPC workspace tools (ws_allocate, ws_list,
// ws_release, ws_extend) that manage scratch allocations. shuttle keeps its
// file cache in a workspace so large temporary data lands on fast scratch
// storage with an expiry instead of in the project space.
package workspace
