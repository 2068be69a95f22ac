/*
Package priming fetches the persisted rotation state before any synchronous work starts.

Retrieval is a remote, blocking call while planning and building slots is not.
A Bridge performs the fetch exactly once and hands back a Primed value, which the
caller passes explicitly to the deployer. Nothing is stored in a global.

# Outcomes

  - OutcomeFound: a valid record was read.
  - OutcomeAbsent: the store confirmed there is no record; bootstrap defaults are used.
  - OutcomeUnknown: the store could not be reached. Under PolicyStrict priming fails
    with a *domain.RetrievalError. Under PolicyLenient a warning is logged and
    bootstrap defaults are used, which can mask an outage as a first deployment.
  - OutcomeOverride: the caller injected the state and no fetch happened.

A corrupt record always fails priming.
*/
package priming
