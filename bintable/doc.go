/*Package bintable loads the per-bin count tables of an EdU-seq sample and
  joins them into one record per (chromosome, bin).

  Three header-less inputs are expected:

    adjusted sample counts   whitespace-delimited  chromosome bin adjusted_1 adjusted_2
    sample bin counts        whitespace-delimited  chromosome bin bin_count_1 bin_count_2
    total sheared (control)  comma-delimited       chromosome,bin,sheared_counts

  Any row that does not parse aborts the load with a *MalformedRowError.
*/
package bintable
