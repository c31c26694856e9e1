// Package server implements the HTTP surface of Share Drop: public uploads,
// the API key guarded management and delete routes, direct serving of
// stored files, and the health and metrics endpoints. Routes and their
// dependencies are wired in New from a Config resolved once at startup.
package server
