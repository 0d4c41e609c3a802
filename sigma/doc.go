/*Package sigma turns the merged bin table of one EdU-seq sample into a
  normalized per-bin replication signal.

  Run performs, in order:

    sigma     = bin_count_1 / sheared_counts * scale * correction
    sigma_mb  = (adjusted_1 - noise_low) / (noise_high - noise_low)
    fitted    = exp(intercept) * sheared_counts^slope     (optional)
    smoothed  = centered moving average of fitted or sigma_mb
    trimmed   = forward spike trim of the same series
    sigma_log2 = log2(max(trimmed, floor) + mean(trimmed))

  Bins without control depth keep sigma = 0 and never contribute to the noise
  bounds or to the curve fit.  The historical pipeline variants are presets
  of Opts.
*/
package sigma
