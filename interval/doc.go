/*Package interval loads sets of genomic regions from BED files and answers
  overlap queries against them.  It is used to drop bins inside excluded
  (blacklisted) regions before normalization.
  Regions are stored per chromosome in biogo interval trees; coordinates are
  0-based half-open, as in BED.
*/
package interval
