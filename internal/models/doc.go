// Package models defines the core domain records for the rotating savings
// engine.
//
// # Entities
//
//   - Group: a rotating savings group (tontine) with an ordered member list
//   - Membership: one user's seat and turn in a group's rotation
//   - Contribution: one member's payment obligation for one round
//   - Payout: the pooled disbursement for a closed round
//   - ReliabilityScore: a user's derived 0-100 payment-history score
//   - User: a registered account
//
// # Design Principles
//
//  1. **Reference graph, not ownership**: records hold opaque ID strings,
//     never embedded object graphs, so cross-entity references cannot cycle
//  2. **Derived state is recomputable**: a ReliabilityScore is a pure
//     function of its counters and can always be rebuilt from contribution
//     history
//  3. **Timestamps are Unix seconds** (int64) throughout
//
// Lifecycle: a Group is created pending with its owner as sole member.
// Members join until the owner starts the group, which fixes the rotation
// order, opens round 1 and creates one Contribution per member. When every
// contribution of a round is paid, exactly one Payout is recorded and the
// rotation advances to the next member, until everyone has taken a turn.
package models
