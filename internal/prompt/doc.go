/*
Package prompt decides, from the bytes a device has sent so far, whether a command
has finished, whether the device is waiting on a pagination prompt, or whether more
output is still coming.

Rules are data: each device family owns an ordered table of trailing-line patterns
and the first match wins. Families without a table fall back to a generic prompt
heuristic that never reports paging.
*/
package prompt
