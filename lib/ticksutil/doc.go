// Package ticksutil provides small helpers shared by the ticks daemon, its
// CLI, and the mainutil plumbing: assertions, typed input errors, and
// ${ENV}/~user expansion for config values.
package ticksutil
